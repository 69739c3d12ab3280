package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"booktracker/internal/auth"
	"booktracker/internal/books"
	"booktracker/internal/httpx"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Logger      *slog.Logger
	Auth        *auth.Service
	Books       *books.Guard
	DB          Pinger
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /healthz", healthHandler(d.DB))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth
	authHandler := &auth.Handler{Service: d.Auth, Logger: d.Logger}
	mux.HandleFunc("POST /api/auth/signin", authHandler.SignIn)
	mux.HandleFunc("POST /api/auth/signup", authHandler.SignUp)
	mux.Handle("GET /api/auth/me", auth.RequireIdentity(http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("GET /api/admin/roles",
		auth.RequireRole(authHandler.ListRoles, auth.RoleAdmin, auth.RoleModerator))

	// Books
	bookHandler := &books.Handler{Guard: d.Books, Logger: d.Logger}
	bookHandler.Register(mux, auth.RequireIdentity)

	resolver := auth.NewResolver(d.Auth.Tokens(), d.Logger)
	return instrument(d.Logger, withCORS(d.CORSOrigins, resolver.Middleware(recordRoute(mux))))
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
