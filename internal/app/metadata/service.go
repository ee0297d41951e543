// Package metadata resolves video metadata for the media currently playing.
package metadata

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/ytlounge/internal/domain/video"
)

var (
	// ErrInvalidAPIKey is returned when the metadata service rejects the API key.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrServiceUnavailable is returned when the metadata service cannot be reached.
	ErrServiceUnavailable = errors.New("metadata service unavailable")
	// ErrNotFound is returned when no video matches the id.
	ErrNotFound = errors.New("video not found")
)

// Service looks up video metadata by media id.
type Service interface {
	Lookup(ctx context.Context, id string) (*video.Record, error)
}

// Validator checks that the service credentials are usable.
type Validator interface {
	Validate(ctx context.Context) error
}

// Factory creates a Service for an API key.
type Factory func(ctx context.Context, apiKey string) (Service, error)
