package books

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"booktracker/internal/auth"
	"booktracker/internal/httpx"
)

// Handler serves the /api/books endpoints. Every route expects the caller's
// identity in the request context.
type Handler struct {
	Guard  *Guard
	Logger *slog.Logger
}

// Register mounts the book routes on mux, each wrapped by protect.
//
// Routes taking an {id} answer 404 when no such book exists and 403 when
// it belongs to another user, so a caller can tell the two apart.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"GET /api/books":                h.List,
		"GET /api/books/{id}":           h.Get,
		"POST /api/books/add":           h.Create,
		"PUT /api/books/{id}":           h.Update,
		"DELETE /api/books/{id}":        h.Delete,
		"GET /api/books/filter/status":  h.FilterStatus,
		"GET /api/books/filter/date":    h.FilterDate,
		"GET /api/books/filter/title":   h.FilterTitle,
		"GET /api/books/sort/startDate": h.sortBy(SortByStartDate),
		"GET /api/books/sort/endDate":   h.sortBy(SortByEndDate),
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, protect(fn))
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, Query{})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	who, _ := auth.IdentityFromContext(r.Context())
	b, err := h.Guard.Get(r.Context(), who, id)
	if err != nil {
		h.writeServiceError(w, "get book", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	who, _ := auth.IdentityFromContext(r.Context())
	b, err := h.Guard.Create(r.Context(), who, in)
	if err != nil {
		h.writeServiceError(w, "create book", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	who, _ := auth.IdentityFromContext(r.Context())
	b, err := h.Guard.Update(r.Context(), who, id, in)
	if err != nil {
		h.writeServiceError(w, "update book", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	who, _ := auth.IdentityFromContext(r.Context())
	if err := h.Guard.Delete(r.Context(), who, id); err != nil {
		h.writeServiceError(w, "delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FilterStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		httpx.WriteMessage(w, http.StatusBadRequest, "status must be not-read or read")
		return
	}
	h.list(w, r, Query{Status: status})
}

func (h *Handler) FilterDate(w http.ResponseWriter, r *http.Request) {
	d, err := ParseDate(r.URL.Query().Get("endDate"))
	if err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
		return
	}
	h.list(w, r, Query{EndDate: &d})
}

func (h *Handler) FilterTitle(w http.ResponseWriter, r *http.Request) {
	vals, ok := r.URL.Query()["title"]
	if !ok {
		httpx.WriteMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	h.list(w, r, Query{TitleContains: vals[0]})
}

func (h *Handler) sortBy(field SortField) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		desc := strings.EqualFold(r.URL.Query().Get("order"), "desc")
		h.list(w, r, Query{SortBy: field, Desc: desc})
	}
}

// list answers 204 when the caller has no matching books.
func (h *Handler) list(w http.ResponseWriter, r *http.Request, q Query) {
	who, _ := auth.IdentityFromContext(r.Context())
	books, err := h.Guard.List(r.Context(), who, q)
	if err != nil {
		h.writeServiceError(w, "list books", err)
		return
	}
	if len(books) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteMessage(w, http.StatusBadRequest, "invalid book id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteMessage(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrUnauthenticated):
		httpx.Unauthorized(w)
	case errors.Is(err, ErrForbidden):
		httpx.Forbidden(w)
	case errors.Is(err, ErrNotFound):
		httpx.WriteMessage(w, http.StatusNotFound, "book not found")
	default:
		h.Logger.Error(op, "err", err)
		httpx.InternalError(w)
	}
}
