package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmbeddingFailed indicates the embedding provider failed or
	// returned malformed output
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmptyText indicates an embedding was requested for empty input
	ErrEmptyText = errors.New("empty text")

	// ErrStorage indicates a document-store or vector-store operation failed
	ErrStorage = errors.New("storage failure")

	// ErrProcessingInProgress indicates the document is already being indexed
	ErrProcessingInProgress = errors.New("processing already in progress")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)

// RateLimitError is returned when the provider call budget is exhausted.
// It carries the recommended wait so callers can requeue with backoff
// instead of busy-waiting.
type RateLimitError struct {
	// Window names the exhausted window ("minute" or "hour")
	Window string

	// RetryAfter is the recommended wait before the next attempt
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s window, retry after %s", e.Window, e.RetryAfter)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
