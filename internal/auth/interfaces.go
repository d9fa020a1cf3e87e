package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storefleet/storefleet/internal/user"
)

// UserStore is the credential store as seen by the auth layer: user records
// keyed by id and email, plus the reset token read/update operations.
// *user.Repository is the production implementation.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*user.User, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiry time.Time) error
	ClearResetToken(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// EmailService defines the outbound mail operations the auth flows need.
type EmailService interface {
	SendWelcomeEmail(ctx context.Context, toEmail, name string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, plainToken string) error
}

// RateLimiter guards the abuse-prone endpoints. *ratelimit.Limiter is the
// production implementation.
type RateLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequest(ctx context.Context, ip, purpose string) error
}
