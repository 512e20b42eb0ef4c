// Package token issues and verifies short-lived download tokens: signed,
// self-contained bearer credentials binding an email to an identity subject.
package token

import (
	"time"

	"github.com/dotwe/early-access/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PurposeDownload is the discriminator claim value for download tokens.
// A token with any other purpose never verifies.
const PurposeDownload = "download"

// Claims carries the download-token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	IdentityID string `json:"identityId"`
	Purpose    string `json:"purpose"`
}

// Service signs and verifies download tokens with a process-wide HS256
// secret. The secret is injected at construction; config validation
// guarantees it is never empty.
type Service struct {
	secret     []byte
	defaultTTL time.Duration
}

func NewService(secret []byte, defaultTTL time.Duration) *Service {
	return &Service{secret: secret, defaultTTL: defaultTTL}
}

// DefaultTTL returns the configured token lifetime.
func (s *Service) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue produces a signed token with a fresh jti, expiring exactly ttl
// from now. The ttl is taken as given: a zero or negative value yields an
// already-expired token. Callers wanting the configured lifetime pass
// DefaultTTL.
func (s *Service) Issue(email, identityID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email:      email,
		IdentityID: identityID,
		Purpose:    PurposeDownload,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature, expiry, and purpose claim. Any failure is
// reported as common.ErrInvalidToken; no partial trust.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !tok.Valid || claims.Purpose != PurposeDownload {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
