// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrorInvalidEmail  = errors.New("invalid email format")
	ErrorTokenRequired = errors.New("download token is required")

	// Token lifecycle errors (invalid signature, wrong purpose, expired).
	ErrInvalidToken = errors.New("invalid token")
)
