package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// SessionClaims are the claims carried by a session token: the user id as
// subject, the role, and the standard issued-at/expiry pair.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id.
func (c *SessionClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenService defines the interface for session token creation and validation.
type TokenService interface {
	CreateToken(userID uuid.UUID, role string) (string, error)
	VerifyToken(tokenStr string) (*SessionClaims, error)
}

// JWTService signs and verifies session tokens with HMAC-SHA256.
type JWTService struct {
	secret   []byte
	duration time.Duration
}

// NewJWTService fails when the signing secret or expiry is absent, so a
// misconfigured server dies at startup instead of minting unverifiable tokens.
func NewJWTService(secret []byte, duration time.Duration) (*JWTService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret must not be empty")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("session duration must be positive, got %s", duration)
	}

	return &JWTService{secret: secret, duration: duration}, nil
}

// CreateToken generates a signed session token for the given user and role.
func (s *JWTService) CreateToken(userID uuid.UUID, role string) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken validates a session token and returns its claims. Expired and
// malformed tokens fail with distinct errors; both mean "re-authenticate".
func (s *JWTService) VerifyToken(tokenStr string) (*SessionClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	var claims SessionClaims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}
