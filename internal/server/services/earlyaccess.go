// Package services composes the signup registry, token service, and
// artifact URL provider into the two request flows of the funnel.
package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/dotwe/early-access/internal/common"
	"github.com/dotwe/early-access/internal/logging"
	"github.com/dotwe/early-access/internal/server/identity"
	"github.com/dotwe/early-access/internal/server/repositories/signups"
	"github.com/dotwe/early-access/internal/server/token"
)

// emailRe is a shape check, not full address validation: one @, no
// whitespace, a dot in the host part.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Tokens is the slice of the download-token service the orchestrator uses.
type Tokens interface {
	Issue(email, identityID string, ttl time.Duration) (string, error)
	Verify(tokenString string) (*token.Claims, error)
	DefaultTTL() time.Duration
}

// Artifacts mints signed URLs for the stored build.
type Artifacts interface {
	Mint(ctx context.Context, key string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) bool
}

// ArtifactInfo describes the downloadable build as published to clients.
type ArtifactInfo struct {
	Key            string
	FileName       string
	SHA256Checksum string
}

// SignupResult is the outcome of a successful signup.
type SignupResult struct {
	Email         string
	DownloadToken string
}

// DownloadResult is the outcome of a successful download request.
type DownloadResult struct {
	URL            string
	FileName       string
	SHA256Checksum string
	ExpiresIn      int64
}

// EarlyAccessService orchestrates the signup and download flows. All
// dependencies are injected; there is no hidden global state.
type EarlyAccessService struct {
	registry signups.Repository
	tokens   Tokens
	builds   Artifacts
	artifact ArtifactInfo
	logger   logging.Logger
}

func NewEarlyAccessService(registry signups.Repository, tokens Tokens, builds Artifacts, artifact ArtifactInfo, logger logging.Logger) *EarlyAccessService {
	return &EarlyAccessService{
		registry: registry,
		tokens:   tokens,
		builds:   builds,
		artifact: artifact,
		logger:   logger.With("module", "early_access"),
	}
}

// Signup registers a verified identity and hands back a download token.
// Repeated signups for the same email update the stored identity id and
// issue a fresh token.
func (s *EarlyAccessService) Signup(ctx context.Context, id identity.Identity) (*SignupResult, error) {
	if !emailRe.MatchString(id.Email) {
		return nil, common.ErrorInvalidEmail
	}

	if _, err := s.registry.Upsert(ctx, id.Email, id.Subject); err != nil {
		return nil, fmt.Errorf("signup upsert: %w", err)
	}

	downloadToken, err := s.tokens.Issue(id.Email, id.Subject, s.tokens.DefaultTTL())
	if err != nil {
		return nil, fmt.Errorf("token issue: %w", err)
	}

	s.logger.Info(ctx, "early access signup", "email", id.Email)

	return &SignupResult{Email: id.Email, DownloadToken: downloadToken}, nil
}

// Download redeems a download token for a signed artifact URL.
//
// Error mapping for the HTTP layer: common.ErrorTokenRequired for a missing
// token, common.ErrInvalidToken for a bad or expired one,
// common.ErrorNotFound when no signup record exists, anything else is an
// internal failure.
func (s *EarlyAccessService) Download(ctx context.Context, rawToken string) (*DownloadResult, error) {
	if rawToken == "" {
		return nil, common.ErrorTokenRequired
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return nil, err
	}

	if _, err := s.registry.Get(ctx, claims.Email); err != nil {
		return nil, err
	}

	if !s.builds.Exists(ctx, s.artifact.Key) {
		// pre-check only; Mint is the authority on whether the object serves
		s.logger.Warn(ctx, "artifact not found by listing", "key", s.artifact.Key)
	}

	ttl := s.tokens.DefaultTTL()
	url, err := s.builds.Mint(ctx, s.artifact.Key, ttl)
	if err != nil {
		return nil, fmt.Errorf("mint url: %w", err)
	}

	// Best-effort bookkeeping: the download must not fail because the
	// counter update did.
	if _, err := s.registry.RecordDownload(ctx, claims.Email); err != nil {
		s.logger.Error(ctx, "failed to record download", "email", claims.Email, "error", err.Error())
	}

	return &DownloadResult{
		URL:            url,
		FileName:       s.artifact.FileName,
		SHA256Checksum: s.artifact.SHA256Checksum,
		ExpiresIn:      int64(ttl.Seconds()),
	}, nil
}

// Stats returns the public signup counter.
func (s *EarlyAccessService) Stats(ctx context.Context) (int64, error) {
	count, err := s.registry.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("signup count: %w", err)
	}
	return count, nil
}
