package auth

import (
	"net/http"
	"time"

	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/user"
)

// SessionCookieName is the cookie mirroring the session token.
const SessionCookieName = "token"

// SessionResponse is the body written whenever a session is issued.
type SessionResponse struct {
	Success bool            `json:"success"`
	Token   string          `json:"token"`
	User    user.PublicUser `json:"user"`
}

// SessionIssuer is the single place sessions are created: it mints the
// token, mirrors it into the session cookie and writes the response body.
type SessionIssuer struct {
	tokens       TokenService
	cookieDays   int
	isProduction bool
}

func NewSessionIssuer(tokens TokenService, cookieDays int, isProduction bool) *SessionIssuer {
	return &SessionIssuer{
		tokens:       tokens,
		cookieDays:   cookieDays,
		isProduction: isProduction,
	}
}

// IssueSession converts an authenticated user into an outbound session:
// token in the body, same token in an HttpOnly strict-same-site cookie.
// The cookie is Secure only in production so local development over plain
// HTTP still works.
func (s *SessionIssuer) IssueSession(w http.ResponseWriter, u *user.User, statusCode int) error {
	token, err := s.tokens.CreateToken(u.ID, u.Role)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(s.cookieDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteStrictMode,
	})

	httputil.RespondJSON(w, SessionResponse{
		Success: true,
		Token:   token,
		User:    u.Public(),
	}, statusCode)

	return nil
}

// ClearSession expires the session cookie immediately. Used on logout and
// when a token no longer resolves to an existing user.
func (s *SessionIssuer) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteStrictMode,
	})
}
