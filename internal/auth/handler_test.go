package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktracker/internal/logging"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	svc, _, _ := newTestService(t, seededRecords())
	return &Handler{Service: svc, Logger: logging.Discard()}
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestHandler_SignUpAndSignIn(t *testing.T) {
	h := newTestHandler(t)

	rec := post(h.SignUp, `{"username":"alice","email":"alice@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User registered successfully!"}`, rec.Body.String())

	rec = post(h.SignIn, `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body signInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bearer", body.Type)
	assert.Equal(t, "alice", body.Username)
	assert.Equal(t, "alice@example.com", body.Email)
	assert.Equal(t, []Role{RoleUser}, body.Roles)
	assert.NotEmpty(t, body.Token)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHandler_SignUpErrors(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusOK,
		post(h.SignUp, `{"username":"alice","email":"alice@example.com","password":"secret1"}`).Code)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"duplicate username", `{"username":"alice","email":"x@example.com","password":"secret1"}`, msgUsernameTaken},
		{"duplicate email", `{"username":"bob","email":"alice@example.com","password":"secret1"}`, msgEmailInUse},
		{"short password", `{"username":"bob","email":"bob@example.com","password":"123"}`, "password must be at least 6 characters"},
		{"bad json", `{`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h.SignUp, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"message":"`+tt.msg+`"}`, rec.Body.String())
		})
	}
}

func TestHandler_SignInErrors(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusOK,
		post(h.SignUp, `{"username":"alice","email":"alice@example.com","password":"secret1"}`).Code)

	wrong := post(h.SignIn, `{"username":"alice","password":"nope12"}`)
	unknown := post(h.SignIn, `{"username":"mallory","password":"nope12"}`)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	assert.Equal(t, http.StatusBadRequest, post(h.SignIn, `{"username":"alice"}`).Code)

	lim := newFakeLimiter()
	lim.blocked = true
	h.Service.WithLimiter(lim)
	assert.Equal(t, http.StatusTooManyRequests, post(h.SignIn, `{"username":"alice","password":"secret1"}`).Code)
}

func TestHandler_MeAndRoles(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(WithIdentity(req.Context(), &Identity{ID: 5, Username: "alice", Roles: []Role{RoleUser}}))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":5,"username":"alice","roles":["USER"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ListRoles(rec, httptest.NewRequest(http.MethodGet, "/api/admin/roles", nil))
	assert.JSONEq(t, `[{"id":1,"name":"USER"},{"id":2,"name":"MODERATOR"},{"id":3,"name":"ADMIN"}]`, rec.Body.String())
}
