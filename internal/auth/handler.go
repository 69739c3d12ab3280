package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"booktracker/internal/httpx"
)

const (
	msgSignedUp          = "User registered successfully!"
	msgUsernameTaken     = "Error: Username is already taken!"
	msgEmailInUse        = "Error: Email is already in use!"
	msgBadCredentials    = "Error: Invalid username or password!"
	msgTooManyAttempts   = "Error: Too many sign-in attempts, try again later!"
	msgCredentialsNeeded = "username and password are required"
)

type Handler struct {
	Service *Service
	Logger  *slog.Logger
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token    string `json:"token"`
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, msgCredentialsNeeded)
		return
	}

	res, err := h.Service.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, "sign in", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, signInResponse{
		Token:    res.Token,
		Type:     "Bearer",
		ID:       res.Account.ID,
		Username: res.Account.Username,
		Email:    res.Account.Email,
		Roles:    res.Account.Roles,
	})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	acc, err := h.Service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, "sign up", err)
		return
	}
	h.Logger.Info("account registered", "user_id", acc.ID, "username", acc.Username)
	httpx.WriteMessage(w, http.StatusOK, msgSignedUp)
}

// Me echoes the identity resolved from the caller's token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, id)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Service.Roles().Records())
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteMessage(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrDuplicateUsername):
		httpx.WriteMessage(w, http.StatusBadRequest, msgUsernameTaken)
	case errors.Is(err, ErrDuplicateEmail):
		httpx.WriteMessage(w, http.StatusBadRequest, msgEmailInUse)
	case errors.Is(err, ErrInvalidCredentials):
		httpx.WriteMessage(w, http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, ErrTooManyAttempts):
		httpx.WriteMessage(w, http.StatusTooManyRequests, msgTooManyAttempts)
	default:
		h.Logger.Error(op, "err", err)
		httpx.InternalError(w)
	}
}
