package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktracker/internal/logging"
)

func captureIdentity(seen **Identity, seenErr *error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = IdentityFromContext(r.Context())
		*seenErr = AuthErrorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestResolver(t *testing.T) {
	tokens, clock := newTestTokens(t, "k", time.Hour)
	alice := &Identity{ID: 1, Username: "alice", Roles: []Role{RoleUser}}
	good, err := tokens.Issue(alice)
	require.NoError(t, err)

	otherKey := NewTokenService("other", time.Hour)
	forged, err := otherKey.Issue(alice)
	require.NoError(t, err)

	expiredSvc, _ := newTestTokens(t, "k", time.Hour)
	expiredSvc.now = func() time.Time { return clock.Now().Add(-2 * time.Hour) }
	expired, err := expiredSvc.Issue(alice)
	require.NoError(t, err)

	rv := NewResolver(tokens, logging.Discard())

	tests := []struct {
		name    string
		header  string
		wantID  *Identity
		wantErr error
	}{
		{"anonymous", "", nil, nil},
		{"valid", "Bearer " + good, alice, nil},
		{"scheme is case-insensitive", "bearer " + good, alice, nil},
		{"wrong signature", "Bearer " + forged, nil, ErrTokenInvalidSignature},
		{"expired", "Bearer " + expired, nil, ErrTokenExpired},
		{"garbage", "Bearer abc", nil, ErrTokenMalformed},
		{"basic auth", "Basic dXNlcjpwYXNz", nil, ErrTokenMalformed},
		{"empty bearer", "Bearer ", nil, ErrTokenMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *Identity
			var seenErr error
			req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			rv.Middleware(captureIdentity(&seen, &seenErr)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code, "resolver never rejects on its own")
			assert.Equal(t, tt.wantID, seen)
			if tt.wantErr == nil {
				assert.NoError(t, seenErr)
			} else {
				assert.ErrorIs(t, seenErr, tt.wantErr)
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireIdentity(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), &Identity{ID: 1, Username: "a"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
		RoleAdmin, RoleModerator)

	for _, tt := range []struct {
		name string
		id   *Identity
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", &Identity{ID: 1, Username: "u", Roles: []Role{RoleUser}}, http.StatusForbidden},
		{"moderator", &Identity{ID: 2, Username: "m", Roles: []Role{RoleUser, RoleModerator}}, http.StatusOK},
		{"admin", &Identity{ID: 3, Username: "a", Roles: []Role{RoleAdmin}}, http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/roles", nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.id))
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
