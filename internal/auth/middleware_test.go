package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/user"
)

func newTestMiddleware(t *testing.T) (*Middleware, *JWTService, *fakeUserStore) {
	t.Helper()
	tokens, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	store := newFakeUserStore()
	issuer := NewSessionIssuer(tokens, 7, false)
	return NewMiddleware(tokens, store, issuer), tokens, store
}

func okHandler(captured **user.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := GetUserFromContext(r.Context()); ok {
			*captured = u
		}
		w.WriteHeader(http.StatusOK)
	})
}

func storeTestUser(t *testing.T, store *fakeUserStore, role string) *user.User {
	t.Helper()
	u, err := store.Create(context.Background(), "Mallory", uuid.NewString()+"@example.com", "hash")
	require.NoError(t, err)
	store.users[u.ID].Role = role
	u.Role = role
	return u
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	mw, tokens, store := newTestMiddleware(t)
	u := storeTestUser(t, store, user.RoleUser)
	token, err := tokens.CreateToken(u.ID, u.Role)
	require.NoError(t, err)

	var got *user.User
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
}

func TestRequireAuth_CookieFallback(t *testing.T) {
	mw, tokens, store := newTestMiddleware(t)
	u := storeTestUser(t, store, user.RoleUser)
	token, err := tokens.CreateToken(u.ID, u.Role)
	require.NoError(t, err)

	var got *user.User
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(new(*user.User))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, msgLoginRequired, body.Message)
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(new(*user.User))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidSession, decodeError(t, rec).Message)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	mw, tokens, store := newTestMiddleware(t)
	u := storeTestUser(t, store, user.RoleUser)

	tokens.duration = -time.Minute
	token, err := tokens.CreateToken(u.ID, u.Role)
	require.NoError(t, err)
	tokens.duration = time.Hour

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(new(*user.User))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgInvalidSession, decodeError(t, rec).Message)
}

func TestRequireAuth_DeletedUserClearsCookie(t *testing.T) {
	mw, tokens, _ := newTestMiddleware(t)

	// Valid token naming a user that no longer exists.
	token, err := tokens.CreateToken(uuid.New(), user.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(new(*user.User))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "stale cookie should be overwritten")
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Empty(t, sessionCookie.Value)
	assert.Negative(t, sessionCookie.MaxAge)
}

func TestRequireRole(t *testing.T) {
	_, _, store := newTestMiddleware(t)
	admin := storeTestUser(t, store, user.RoleAdmin)
	regular := storeTestUser(t, store, user.RoleUser)

	gate := RequireRole(user.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	withIdentity := func(u *user.User) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), UserContextKey, u))
	}

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, withIdentity(admin))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, withIdentity(regular))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, user.RoleUser)

	// No identity in context at all: fail closed.
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIssueSession(t *testing.T) {
	tokens, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	issuer := NewSessionIssuer(tokens, 3, true)

	u := &user.User{ID: uuid.New(), Name: "Niaj", Email: "niaj@example.com", Role: user.RoleUser, PasswordHash: "hash"}
	rec := httptest.NewRecorder()
	require.NoError(t, issuer.IssueSession(rec, u, http.StatusCreated))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, u.Email, body.User.Email)

	claims, err := tokens.VerifyToken(body.Token)
	require.NoError(t, err)
	gotID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, gotID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, body.Token, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.WithinDuration(t, time.Now().Add(3*24*time.Hour), c.Expires, time.Minute)

	// The serialized user must never include credential material.
	raw, err := json.Marshal(body.User)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.NotContains(t, string(raw), "password")
}
