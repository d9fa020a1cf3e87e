package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/metrics"
	"github.com/storefleet/storefleet/internal/user"
)

// Handler contains HTTP handlers for the credential lifecycle endpoints
type Handler struct {
	service     *Service
	issuer      *SessionIssuer
	rateLimiter RateLimiter
	collector   *metrics.Collector
	logger      *logging.Logger
}

func NewHandler(service *Service, issuer *SessionIssuer, rateLimiter RateLimiter, collector *metrics.Collector, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		issuer:      issuer,
		rateLimiter: rateLimiter,
		collector:   collector,
		logger:      logger,
	}
}

// SignupRequest represents the registration request body
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdatePasswordRequest represents the authenticated password change
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Signup handles user registration
// @Summary      Register a new user
// @Description  Create a new account. Responds with a fresh session token and cookie.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Registration details"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /api/storefleet/user/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.rateLimited(w, r, "signup") {
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("signup failed: email already exists")
			httputil.RespondError(w, "email already exists, please try a different email", http.StatusConflict)
			return
		}
		if IsValidationError(err) {
			logger.Warn("signup failed: validation error", "error", err.Error())
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error("signup failed: internal error", "error", err.Error())
		httputil.RespondError(w, "error occurred during registration", http.StatusInternalServerError)
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)
	h.collector.RecordSignup()
	h.issueSession(w, r, newUser, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate by email and password and receive a session.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Router       /api/storefleet/user/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.rateLimited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.RespondError(w, "please enter both email and password", http.StatusBadRequest)
		return
	}

	u, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondError(w, "login failed, please try again later", http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in", "user_id", u.ID)
	h.collector.RecordLogin()
	h.issueSession(w, r, u, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Clear the session cookie.
// @Tags         user
// @Produce      json
// @Security     SessionAuth
// @Success      200 {object} httputil.MessageResponse
// @Router       /api/storefleet/user/logout [get]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.issuer.ClearSession(w)
	httputil.RespondMessage(w, "logout successful", http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request a password reset
// @Description  Send a reset token to the given address. The response is identical whether or not the email is registered.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing email"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Delivery failure"
// @Router       /api/storefleet/user/password/forget [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.rateLimited(w, r, "forgot-password") {
		return
	}

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if IsValidationError(err) {
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrResetEmailFailed) {
			httputil.RespondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		logger.Error("forgot password failed: internal error", "error", err.Error())
		httputil.RespondError(w, "error processing forgot password request", http.StatusInternalServerError)
		return
	}

	// Same response whether or not the account exists.
	httputil.RespondMessage(w,
		"if your email address is registered, you will receive a password reset token shortly",
		http.StatusOK)
}

// ResetPassword handles password reset confirmation
// @Summary      Reset password with a token
// @Description  Consume a reset token from the path and set a new password. Issues a fresh session on success.
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        token   path string               true "Reset token (40 hex chars)"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid input or invalid/expired token"
// @Router       /api/storefleet/user/password/reset/{token} [put]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.RespondError(w, "password reset token is required", http.StatusBadRequest)
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.service.ResetPassword(r.Context(), token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		if IsValidationError(err) {
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInvalidResetToken) {
			logger.Warn("password reset failed: invalid or expired token")
			httputil.RespondError(w, "password reset token is invalid or has expired, please request a new one", http.StatusBadRequest)
			return
		}
		logger.Error("password reset failed: internal error", "error", err.Error())
		httputil.RespondError(w, "error resetting password", http.StatusInternalServerError)
		return
	}

	h.collector.RecordPasswordReset()
	h.issueSession(w, r, u, http.StatusOK)
}

// UpdatePassword handles an authenticated password change
// @Summary      Change password
// @Description  Verify the current password and set a new one. Issues a refreshed session.
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        request body UpdatePasswordRequest true "Password change"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Wrong current password"
// @Router       /api/storefleet/user/password/update [put]
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, msgLoginRequired, http.StatusUnauthorized)
		return
	}

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.service.UpdatePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		if IsValidationError(err) {
			httputil.RespondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrWrongPassword) {
			logger.Warn("password update failed: wrong current password", "user_id", identity.ID)
			httputil.RespondError(w, "incorrect current password", http.StatusUnauthorized)
			return
		}
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondError(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Error("password update failed: internal error", "error", err.Error())
		httputil.RespondError(w, "error updating password", http.StatusInternalServerError)
		return
	}

	h.issueSession(w, r, u, http.StatusOK)
}

// issueSession writes the session response, mapping issuance failure
// (missing signing config) to a 500 rather than a broken token.
func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, u *user.User, statusCode int) {
	if err := h.issuer.IssueSession(w, u, statusCode); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to issue session", "error", err.Error())
		httputil.RespondError(w, "server configuration error, unable to authenticate", http.StatusInternalServerError)
	}
}

// rateLimited enforces the per-IP limit for the given purpose. Limiter
// errors are logged and ignored: Redis being down must not lock users out.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := clientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("rate limit exceeded", "purpose", purpose, "ip", ip)
		httputil.RespondError(w, "too many requests, please try again later", http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record rate limit request", "error", err.Error())
	}
	return false
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware already folded X-Forwarded-For into RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
