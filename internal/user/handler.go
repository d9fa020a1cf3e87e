package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storefleet/storefleet/internal/httputil"
	"github.com/storefleet/storefleet/internal/logging"
)

// identityFromContext matches auth.GetUserFromContext without importing the
// auth package, which would cycle back into this one.
type identityFromContext func(ctx context.Context) (*User, bool)

// Handler contains HTTP handlers for profile and user administration.
type Handler struct {
	repo     *Repository
	identity identityFromContext
	logger   *logging.Logger
}

func NewHandler(repo *Repository, identity identityFromContext, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, identity: identity, logger: logger}
}

// UserResponse wraps a single user payload.
type UserResponse struct {
	Success bool       `json:"success"`
	User    PublicUser `json:"user"`
}

// UserListResponse wraps the admin user listing.
type UserListResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Users   []PublicUser `json:"users"`
}

// UpdateProfileRequest carries the self-service profile change.
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// AdminUpdateUserRequest carries the admin-side update; nil fields are
// left untouched.
type AdminUpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

// Details returns the authenticated user's own record
// @Summary      Current user details
// @Tags         user
// @Produce      json
// @Security     SessionAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/storefleet/user/details [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	u, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}
	httputil.RespondJSON(w, UserResponse{Success: true, User: u.Public()}, http.StatusOK)
}

// UpdateProfile changes the authenticated user's display name
// @Summary      Update own profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/storefleet/user/profile/update [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := h.identity(r.Context())
	if !ok {
		httputil.RespondError(w, "login required to access this resource, please login", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		httputil.RespondError(w, "name is required", http.StatusBadRequest)
		return
	}
	if len(req.Name) < 2 || len(req.Name) > 30 {
		httputil.RespondError(w, "name must be between 2 and 30 characters", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.UpdateProfile(r.Context(), u.ID, req.Name)
	if err != nil {
		logger.Error("failed to update profile", "user_id", u.ID, "error", err.Error())
		httputil.RespondError(w, "error updating profile", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, UserResponse{Success: true, User: updated.Public()}, http.StatusOK)
}

// ListUsers returns all users
// @Summary      List all users (admin)
// @Tags         admin
// @Produce      json
// @Security     SessionAuth
// @Success      200 {object} UserListResponse
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /api/storefleet/user/admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	users, err := h.repo.List(r.Context())
	if err != nil {
		logger.Error("failed to list users", "error", err.Error())
		httputil.RespondError(w, "error fetching users", http.StatusInternalServerError)
		return
	}

	public := make([]PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}

	httputil.RespondJSON(w, UserListResponse{Success: true, Count: len(public), Users: public}, http.StatusOK)
}

// GetUser returns one user by id
// @Summary      Get user details (admin)
// @Tags         admin
// @Produce      json
// @Security     SessionAuth
// @Param        id path string true "User ID"
// @Success      200 {object} UserResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/user/admin/users/{id} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to get user", "user_id", id, "error", err.Error())
		httputil.RespondError(w, "error fetching user", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, UserResponse{Success: true, User: u.Public()}, http.StatusOK)
}

// UpdateUser updates a user's profile or role
// @Summary      Update user (admin)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     SessionAuth
// @Param        id      path string                 true "User ID"
// @Param        request body AdminUpdateUserRequest true "Fields to change"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse
// @Router       /api/storefleet/user/admin/update/{id} [put]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == nil && req.Email == nil && req.Role == nil {
		httputil.RespondError(w, "nothing to update: provide name, email, or role", http.StatusBadRequest)
		return
	}
	if req.Role != nil && !ValidRole(*req.Role) {
		httputil.RespondError(w, "role must be either 'user' or 'admin'", http.StatusBadRequest)
		return
	}
	if req.Name != nil && (len(*req.Name) < 2 || len(*req.Name) > 30) {
		httputil.RespondError(w, "name must be between 2 and 30 characters", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.AdminUpdate(r.Context(), id, req.Name, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "user not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrDuplicateEmail) {
			httputil.RespondError(w, "email already exists, please try a different email", http.StatusConflict)
			return
		}
		logger.Error("failed to update user", "user_id", id, "error", err.Error())
		httputil.RespondError(w, "error updating user", http.StatusInternalServerError)
		return
	}

	logger.Info("user updated by admin", "user_id", id)
	httputil.RespondJSON(w, UserResponse{Success: true, User: updated.Public()}, http.StatusOK)
}

// DeleteUser removes a user account
// @Summary      Delete user (admin)
// @Tags         admin
// @Produce      json
// @Security     SessionAuth
// @Param        id path string true "User ID"
// @Success      200 {object} UserResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/storefleet/user/admin/users/{id} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to delete user", "user_id", id, "error", err.Error())
		httputil.RespondError(w, "error deleting user", http.StatusInternalServerError)
		return
	}

	logger.Info("user deleted by admin", "user_id", id)
	httputil.RespondJSON(w, UserResponse{Success: true, User: deleted.Public()}, http.StatusOK)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "invalid user id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
