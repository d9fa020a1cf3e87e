package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("incorrect current password")
	ErrResetEmailFailed   = errors.New("failed to send password reset email, please try again")
)

// ValidationError marks client-supplied input as unusable; handlers map it
// to a 400 with its message.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(msg string) error { return &ValidationError{msg: msg} }

// IsValidationError reports whether err originates from input validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	minPasswordLength = 6
	minNameLength     = 2
	maxNameLength     = 30
	maxEmailLength    = 254
)

// Service handles the credential lifecycle: signup, login, and the
// password update/reset flows.
type Service struct {
	users  UserStore
	email  EmailService
	logger *logging.Logger

	// now is swapped out in tests to pin the clock
	now func() time.Time
}

func NewService(users UserStore, email EmailService, logger *logging.Logger) *Service {
	return &Service{
		users:  users,
		email:  email,
		logger: logger,
		now:    time.Now,
	}
}

// Signup validates the registration input, hashes the password and creates
// the user. The welcome mail is best-effort: its failure never fails the
// signup.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*user.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, validationError("name, email, and password are required")
	}
	if len(name) < minNameLength || len(name) > maxNameLength {
		return nil, validationError(fmt.Sprintf("name must be between %d and %d characters", minNameLength, maxNameLength))
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, validationError(fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, name, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.email.SendWelcomeEmail(emailCtx, newUser.Email, newUser.Name); err != nil {
			s.logger.Warn("failed to send welcome email", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the same error so neither confirms the other.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(password, existing.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return existing, nil
}

// ForgotPassword starts a reset flow. For an unknown email it silently does
// nothing, so the response cannot reveal which addresses are registered.
// Delivery is awaited synchronously; if it fails, the stored token is rolled
// back so no valid secret dangles that the user never received.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return validationError("please provide your email address")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		s.logger.Warn("failed to get user for password reset", "error", err)
		return nil
	}

	plain, hash, err := GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, existing.ID, hash, s.now().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.email.SendPasswordResetEmail(ctx, existing.Email, existing.Name, plain); err != nil {
		s.logger.Error("failed to send password reset email", "email", existing.Email, "error", err)
		if clearErr := s.users.ClearResetToken(ctx, existing.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset token after delivery failure", "error", clearErr)
		}
		return ErrResetEmailFailed
	}

	return nil
}

// ResetPassword consumes a reset secret and commits the new password. A
// wrong and an expired token fail identically, and a consumed token cannot
// be replayed because the commit clears its hash.
func (s *Service) ResetPassword(ctx context.Context, plainToken, newPassword, confirmPassword string) (*user.User, error) {
	if err := validateNewPassword(newPassword, confirmPassword); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByResetTokenHash(ctx, HashResetToken(plainToken), s.now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.ResetPassword(ctx, existing.ID, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("password reset completed", "user_id", existing.ID)
	return existing, nil
}

// UpdatePassword changes an authenticated user's password after verifying
// the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword, confirmPassword string) (*user.User, error) {
	if currentPassword == "" {
		return nil, validationError("current password is required")
	}
	if err := validateNewPassword(newPassword, confirmPassword); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(currentPassword, existing.PasswordHash) {
		return nil, ErrWrongPassword
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, existing.ID, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	return existing, nil
}

func validateNewPassword(newPassword, confirmPassword string) error {
	if newPassword == "" || confirmPassword == "" {
		return validationError("new password and confirm password are required")
	}
	if newPassword != confirmPassword {
		return validationError("new password and confirm password do not match")
	}
	if len(newPassword) < minPasswordLength {
		return validationError(fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > maxEmailLength {
		return validationError("invalid email format")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return validationError("invalid email format")
	}
	return nil
}
