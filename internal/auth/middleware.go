package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// UserContextKey holds the authenticated *user.User for the request.
const UserContextKey ContextKey = "user"

const (
	msgLoginRequired  = "login required to access this resource, please login"
	msgInvalidSession = "invalid or expired session, please login again"
)

// Middleware handles authentication and authorization for protected routes
type Middleware struct {
	tokens TokenService
	users  UserStore
	issuer *SessionIssuer
}

func NewMiddleware(tokens TokenService, users UserStore, issuer *SessionIssuer) *Middleware {
	return &Middleware{tokens: tokens, users: users, issuer: issuer}
}

// RequireAuth validates the inbound session credential, loads the user it
// names and attaches the full record to the request context. Expired and
// malformed tokens are told apart only in the logs; the client sees one
// generic 401 either way.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token := extractToken(r)
		if token == "" {
			httputil.RespondError(w, msgLoginRequired, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokens.VerifyToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				logger.Warn("authentication failed: session expired")
			} else {
				logger.Warn("authentication failed: malformed session token")
			}
			httputil.RespondError(w, msgInvalidSession, http.StatusUnauthorized)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			logger.Warn("authentication failed: bad subject in session token")
			httputil.RespondError(w, msgInvalidSession, http.StatusUnauthorized)
			return
		}

		u, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// Stale token for a deleted account: drop the cookie so the
				// client stops replaying it.
				logger.Warn("authentication failed: token user no longer exists", "user_id", userID)
				m.issuer.ClearSession(w)
				httputil.RespondError(w, msgInvalidSession, http.StatusUnauthorized)
				return
			}
			logger.Error("authentication failed: user lookup error", "error", err.Error())
			httputil.RespondError(w, "authentication failed, please try again", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole authorizes an already-authenticated request against an
// allow-list of roles. Reaching it without RequireAuth having run is a
// routing bug and fails closed.
func RequireRole(allowedRoles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := GetUserFromContext(r.Context())
			if !ok || u.Role == "" {
				logging.GetLoggerFromContext(r.Context()).Error("role gate reached without authenticated identity")
				httputil.RespondError(w, "user role not available, access denied", http.StatusForbidden)
				return
			}

			for _, role := range allowedRoles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Roles are not secret, so naming them in the message is safe.
			httputil.RespondError(w,
				"access denied: role '"+u.Role+"' is not authorized, requires one of: "+strings.Join(allowedRoles, ", "),
				http.StatusForbidden)
		})
	}
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok
}

// extractToken takes the session credential from the Authorization header,
// falling back to the session cookie.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
