package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"booktracker/internal/httpx"
)

type contextKey int

const (
	identityKey contextKey = iota
	authErrKey
)

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// AuthErrorFromContext returns the reason a presented token was rejected,
// or nil when the request carried no token or a valid one.
func AuthErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(authErrKey).(error)
	return err
}

type TokenValidator interface {
	Validate(token string) (*Identity, error)
}

// Resolver turns a bearer token into a request-scoped Identity. It never
// rejects a request itself: a missing token leaves the request anonymous and
// an invalid one is recorded for diagnostics. RequireIdentity and
// RequireRole do the denying.
type Resolver struct {
	tokens TokenValidator
	logger *slog.Logger
}

func NewResolver(tokens TokenValidator, logger *slog.Logger) *Resolver {
	return &Resolver{tokens: tokens, logger: logger}
}

func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		id, err := rv.tokens.Validate(token)
		if err != nil {
			tokenRejectedTotal.WithLabelValues(tokenReason(err)).Inc()
			rv.logger.Debug("bearer token rejected", "path", r.URL.Path, "reason", err)
			ctx = context.WithValue(ctx, authErrKey, err)
		} else {
			ctx = WithIdentity(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reports the token from the Authorization header. present is
// true whenever the header is set, so a header with the wrong scheme or an
// empty token still counts as a rejected token rather than no token.
func bearerToken(r *http.Request) (token string, present bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireIdentity answers 401 unless the Resolver attached an identity.
// The client never learns why a token was rejected.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			httpx.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			httpx.Unauthorized(w)
			return
		}
		if !id.HasAnyRole(roles...) {
			httpx.Forbidden(w)
			return
		}
		next(w, r)
	}
}
