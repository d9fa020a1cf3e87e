package user

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the supported role values.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the full credential record. It stays inside the service layer;
// API responses are built from the PublicUser projection so the password
// hash and reset token fields can never leak through serialization.
type User struct {
	ID               uuid.UUID
	Name             string
	Email            string
	PasswordHash     string
	Role             string
	ResetTokenHash   *string
	ResetTokenExpiry *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicUser is the API-facing projection of a user record.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public returns the projection of u that is safe to serialize.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasActiveResetToken reports whether a reset flow is in progress at the
// given instant. Expiry is strict: a token at exactly its expiry is dead.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}
