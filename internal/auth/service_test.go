package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefleet/storefleet/internal/logging"
	"github.com/storefleet/storefleet/internal/user"
)

// fakeUserStore is an in-memory UserStore for exercising the service
// without a database.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User

	resetPasswordCalls int
	clearTokenCalls    int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*user.User)}
}

func (f *fakeUserStore) Create(_ context.Context, name, email, passwordHash string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lowered := strings.ToLower(email)
	for _, u := range f.users {
		if u.Email == lowered {
			return nil, user.ErrDuplicateEmail
		}
	}
	u := &user.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        lowered,
		PasswordHash: passwordHash,
		Role:         user.RoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lowered := strings.ToLower(email)
	for _, u := range f.users {
		if u.Email == lowered {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) GetByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) SetResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeUserStore) ClearResetToken(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearTokenCalls++
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) ResetPassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetPasswordCalls++
	u, ok := f.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpiry = nil
	return nil
}

// fakeEmailService records outbound mail and can be made to fail.
type fakeEmailService struct {
	mu         sync.Mutex
	resetMails []string // plaintext tokens handed out
	failReset  bool
}

func (f *fakeEmailService) SendWelcomeEmail(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(_ context.Context, _, _, plainToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReset {
		return errors.New("smtp: connection refused")
	}
	f.resetMails = append(f.resetMails, plainToken)
	return nil
}

func (f *fakeEmailService) lastResetToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resetMails) == 0 {
		return ""
	}
	return f.resetMails[len(f.resetMails)-1]
}

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeEmailService) {
	t.Helper()
	store := newFakeUserStore()
	mail := &fakeEmailService{}
	svc := NewService(store, mail, logging.NewLogger(true))
	return svc, store, mail
}

func seedUser(t *testing.T, svc *Service, email, password string) *user.User {
	t.Helper()
	u, err := svc.Signup(context.Background(), "Test User", email, password)
	require.NoError(t, err)
	return u
}

func TestSignup(t *testing.T) {
	svc, _, _ := newTestService(t)

	u, err := svc.Signup(context.Background(), "Alice", "Alice@Example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email, "email should be stored lower-cased")
	assert.Equal(t, user.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.True(t, CheckPassword("secret123", u.PasswordHash))
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"missing fields", "", "", ""},
		{"short name", "A", "a@example.com", "secret123"},
		{"long name", strings.Repeat("a", 31), "a@example.com", "secret123"},
		{"bad email", "Alice", "not-an-email", "secret123"},
		{"short password", "Alice", "a@example.com", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.userName, tt.email, tt.password)
			assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedUser(t, svc, "alice@example.com", "secret123")

	_, err := svc.Signup(context.Background(), "Other Alice", "ALICE@example.com", "different1")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := seedUser(t, svc, "bob@example.com", "secret123")

	u, err := svc.Login(context.Background(), "bob@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
}

func TestLogin_EnumerationResistance(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedUser(t, svc, "bob@example.com", "secret123")
	ctx := context.Background()

	// Unknown email and wrong password must be indistinguishable.
	_, unknownErr := svc.Login(ctx, "nobody@example.com", "secret123")
	_, wrongErr := svc.Login(ctx, "bob@example.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestForgotPassword(t *testing.T) {
	svc, store, mail := newTestService(t)
	created := seedUser(t, svc, "carol@example.com", "secret123")

	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	err := svc.ForgotPassword(context.Background(), "carol@example.com")
	require.NoError(t, err)

	plain := mail.lastResetToken()
	require.NotEmpty(t, plain)
	assert.Len(t, plain, 40)

	stored := store.users[created.ID]
	require.NotNil(t, stored.ResetTokenHash)
	assert.Equal(t, HashResetToken(plain), *stored.ResetTokenHash, "only the hash is persisted")
	require.NotNil(t, stored.ResetTokenExpiry)
	assert.Equal(t, start.Add(ResetTokenTTL), *stored.ResetTokenExpiry)
}

func TestForgotPassword_UnknownEmailSilent(t *testing.T) {
	svc, _, mail := newTestService(t)

	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	assert.NoError(t, err, "unknown email must not be observable")
	assert.Empty(t, mail.resetMails)
}

func TestForgotPassword_DeliveryFailureRollsBack(t *testing.T) {
	svc, store, mail := newTestService(t)
	created := seedUser(t, svc, "dave@example.com", "secret123")
	mail.failReset = true

	err := svc.ForgotPassword(context.Background(), "dave@example.com")
	assert.ErrorIs(t, err, ErrResetEmailFailed)

	stored := store.users[created.ID]
	assert.Nil(t, stored.ResetTokenHash, "token must be rolled back when delivery fails")
	assert.Nil(t, stored.ResetTokenExpiry)
	assert.Equal(t, 1, store.clearTokenCalls)
}

func TestResetPassword(t *testing.T) {
	svc, store, mail := newTestService(t)
	created := seedUser(t, svc, "erin@example.com", "oldpassword")
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, "erin@example.com"))
	plain := mail.lastResetToken()

	u, err := svc.ResetPassword(ctx, plain, "newpassword", "newpassword")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.Equal(t, 1, store.resetPasswordCalls)

	// Old password dead, new one live, token consumed.
	_, err = svc.Login(ctx, "erin@example.com", "oldpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "erin@example.com", "newpassword")
	assert.NoError(t, err)
	_, err = svc.ResetPassword(ctx, plain, "another99", "another99")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "a consumed token must not be replayable")
}

func TestResetPassword_InvalidToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResetPassword(context.Background(), "0123456789abcdef0123456789abcdef01234567", "newpassword", "newpassword")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	svc, _, mail := newTestService(t)
	seedUser(t, svc, "frank@example.com", "secret123")
	ctx := context.Background()

	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	require.NoError(t, svc.ForgotPassword(ctx, "frank@example.com"))
	plain := mail.lastResetToken()

	// Exactly at expiry the token is already dead.
	svc.now = func() time.Time { return start.Add(ResetTokenTTL) }
	_, err := svc.ResetPassword(ctx, plain, "newpassword", "newpassword")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	// One instant before expiry it still works.
	svc.now = func() time.Time { return start.Add(ResetTokenTTL - time.Nanosecond) }
	_, err = svc.ResetPassword(ctx, plain, "newpassword", "newpassword")
	assert.NoError(t, err)
}

func TestResetPassword_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ResetPassword(ctx, "sometoken", "newpassword", "different")
	assert.True(t, IsValidationError(err))

	_, err = svc.ResetPassword(ctx, "sometoken", "short", "short")
	assert.True(t, IsValidationError(err))

	_, err = svc.ResetPassword(ctx, "sometoken", "", "")
	assert.True(t, IsValidationError(err))
}

func TestUpdatePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := seedUser(t, svc, "grace@example.com", "oldpassword")
	ctx := context.Background()

	_, err := svc.UpdatePassword(ctx, created.ID, "oldpassword", "newpassword", "newpassword")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "grace@example.com", "newpassword")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "grace@example.com", "oldpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	svc, _, _ := newTestService(t)
	created := seedUser(t, svc, "heidi@example.com", "oldpassword")

	_, err := svc.UpdatePassword(context.Background(), created.ID, "not-the-password", "newpassword", "newpassword")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestUpdatePassword_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdatePassword(context.Background(), uuid.New(), "whatever1", "newpassword", "newpassword")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
