// Package apperrors defines the sentinel errors shared across services
// and handlers. Handlers map these to HTTP status codes with errors.Is.
package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrEmbedding         = errors.New("embedding generation failed")
	ErrInference         = errors.New("inference call failed")
	ErrStreamInterrupted = errors.New("generation stream interrupted")
)
