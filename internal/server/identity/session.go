package identity

import (
	"time"

	"github.com/dotwe/early-access/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// purposeSession discriminates session tokens from download tokens signed
// with a different secret but the same claim layout.
const purposeSession = "session"

type sessionClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	IdentityID string `json:"identityId"`
	Purpose    string `json:"purpose"`
}

// Sessions issues and verifies the stateless 30-day session tokens carried
// in the browser cookie after a successful Google sign-in.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{secret: secret, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

func (s *Sessions) Issue(identity Identity) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Email:      identity.Email,
		IdentityID: identity.Subject,
		Purpose:    purposeSession,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns the identity bound to a session token, or
// common.ErrorUnauthorized for any invalid, expired, or mispurposed token.
func (s *Sessions) Verify(tokenString string) (Identity, error) {
	claims := &sessionClaims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid || claims.Purpose != purposeSession {
		return Identity{}, common.ErrorUnauthorized
	}

	return Identity{Email: claims.Email, Subject: claims.IdentityID}, nil
}
