package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefleet/storefleet/internal/user"
)

var testSecret = []byte("test-signing-secret-at-least-32-chars")

func TestNewJWTService_Validation(t *testing.T) {
	_, err := NewJWTService(nil, time.Hour)
	assert.Error(t, err)

	_, err = NewJWTService(testSecret, 0)
	assert.Error(t, err)

	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.CreateToken(userID, user.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, claims.Role)

	parsedID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
}

func TestJWTService_Expired(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	svc.duration = -time.Minute

	token, err := svc.CreateToken(uuid.New(), user.RoleUser)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_WrongSecret(t *testing.T) {
	issuer, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	verifier, err := NewJWTService([]byte("a-completely-different-secret-value"), time.Hour)
	require.NoError(t, err)

	token, err := issuer.CreateToken(uuid.New(), user.RoleUser)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Malformed(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	for _, bad := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := svc.VerifyToken(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q should be rejected", bad)
	}
}

func TestJWTService_Tampered(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := svc.CreateToken(uuid.New(), user.RoleUser)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.VerifyToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
