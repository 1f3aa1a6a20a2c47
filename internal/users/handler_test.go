package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/gemini-chat/internal/http/middleware"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *middleware.Sessions, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	sessions := middleware.NewSessions(middleware.SessionConfig{Secret: "test-secret"})
	h := NewHandler(repo, sessions, logging.Default())
	h.hashCost = bcrypt.MinCost
	return h, sessions, repo
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	t.Fatal("auth_token cookie not set")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) accountResponse {
	t.Helper()
	var resp accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func signup(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Signup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/user/signup", strings.NewReader(body)))
	return rec
}

func TestSignup_CreatesUserAndSession(t *testing.T) {
	h, sessions, repo := newTestHandler(t)

	rec := signup(t, h, `{"name":"Ada","email":"Ada@Example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, accountResponse{Message: "OK", Name: "Ada", Email: "ada@example.com"}, decode(t, rec))

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	claims, err := sessions.Verify(cookie.Value)
	require.NoError(t, err)

	user, err := repo.GetByEmail(t.Context(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestSignup_Validation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := signup(t, h, `{"name":"Ada","email":"ada@example.com","password":"123"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ErrWeakPassword.Error(), decode(t, rec).Message)

	rec = signup(t, h, `{"name":"Ada","email":"ada@example.com","password":"`+strings.Repeat("a", 80)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ErrPasswordTooLong.Error(), decode(t, rec).Message)

	rec = signup(t, h, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h, _, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, signup(t, h, `{"name":"Ada","email":"ada@example.com","password":"secret1"}`).Code)

	rec := signup(t, h, `{"name":"Ada","email":"ADA@example.com","password":"secret2"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User already registered", decode(t, rec).Message)
}

func TestLogin(t *testing.T) {
	h, _, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, signup(t, h, `{"name":"Ada","email":"ada@example.com","password":"secret1"}`).Code)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "success", body: `{"email":"ada@example.com","password":"secret1"}`, wantStatus: http.StatusOK, wantMsg: "OK"},
		{name: "wrong password", body: `{"email":"ada@example.com","password":"wrong-pass"}`, wantStatus: http.StatusForbidden, wantMsg: "Incorrect Password"},
		{name: "password over bcrypt limit", body: `{"email":"ada@example.com","password":"` + strings.Repeat("a", 80) + `"}`, wantStatus: http.StatusUnprocessableEntity, wantMsg: ErrPasswordTooLong.Error()},
		{name: "unknown email", body: `{"email":"bob@example.com","password":"secret1"}`, wantStatus: http.StatusUnauthorized, wantMsg: "User not registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/user/login", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec).Message)
			if tt.wantStatus == http.StatusOK {
				sessionCookie(t, rec)
			}
		})
	}
}

func TestAuthStatusAndLogout(t *testing.T) {
	h, sessions, _ := newTestHandler(t)
	signupRec := signup(t, h, `{"name":"Ada","email":"ada@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, signupRec.Code)
	cookie := sessionCookie(t, signupRec)

	status := sessions.Require(http.HandlerFunc(h.AuthStatus))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/auth-status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	status.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, accountResponse{Message: "OK", Name: "Ada", Email: "ada@example.com"}, decode(t, rec))

	logout := sessions.Require(http.HandlerFunc(h.Logout))
	req = httptest.NewRequest(http.MethodGet, "/api/v1/user/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	logout.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Equal(t, "", cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestAuthStatus_UnknownUser(t *testing.T) {
	h, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/auth-status", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), "deleted-user", "gone@example.com"))
	rec := httptest.NewRecorder()
	h.AuthStatus(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not registered OR Token malfunctioned", decode(t, rec).Message)
}

func TestAuthStatus_EmailMismatch(t *testing.T) {
	h, _, repo := newTestHandler(t)
	user, err := repo.Create(t.Context(), "Ada", "ada@example.com", "hash")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/auth-status", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), user.ID, "mallory@example.com"))
	rec := httptest.NewRecorder()
	h.AuthStatus(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Permissions didn't match", decode(t, rec).Message)
}
