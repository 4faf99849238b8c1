package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Ensure RateLimitedEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)

// RateLimitedEmbedding enforces a local call budget in front of an
// embedding backend: one limiter per minute window, one per hour.
//
// The check is fail-fast rather than blocking. An exhausted budget
// returns *domain.RateLimitError immediately so the job queue can
// reschedule with backoff instead of tying up a worker slot waiting.
type RateLimitedEmbedding struct {
	inner  driven.EmbeddingService
	minute *rate.Limiter
	hour   *rate.Limiter
}

// NewRateLimitedEmbedding wraps a backend with the given budget.
// Non-positive limits disable the corresponding window.
func NewRateLimitedEmbedding(inner driven.EmbeddingService, limits domain.RateLimitSettings) *RateLimitedEmbedding {
	r := &RateLimitedEmbedding{inner: inner}
	if limits.PerMinute > 0 {
		r.minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(limits.PerMinute)), limits.PerMinute)
	}
	if limits.PerHour > 0 {
		r.hour = rate.NewLimiter(rate.Every(time.Hour/time.Duration(limits.PerHour)), limits.PerHour)
	}
	return r
}

// reserve takes one token from both windows, failing without consuming
// when either is empty.
func (r *RateLimitedEmbedding) reserve() error {
	now := time.Now()

	var minuteRes *rate.Reservation
	if r.minute != nil {
		minuteRes = r.minute.ReserveN(now, 1)
		if delay := minuteRes.DelayFrom(now); delay > 0 {
			minuteRes.Cancel()
			return &domain.RateLimitError{Window: "minute", RetryAfter: delay}
		}
	}
	if r.hour != nil {
		hourRes := r.hour.ReserveN(now, 1)
		if delay := hourRes.DelayFrom(now); delay > 0 {
			hourRes.Cancel()
			// Refund the minute token: the call never happened.
			if minuteRes != nil {
				minuteRes.Cancel()
			}
			return &domain.RateLimitError{Window: "hour", RetryAfter: delay}
		}
	}
	return nil
}

// Embed consumes one budget token for the whole batch
func (r *RateLimitedEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.reserve(); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// EmbedQuery consumes one budget token
func (r *RateLimitedEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := r.reserve(); err != nil {
		return nil, err
	}
	return r.inner.EmbedQuery(ctx, query)
}

// Dimensions returns the wrapped backend's dimension
func (r *RateLimitedEmbedding) Dimensions() int {
	return r.inner.Dimensions()
}

// Model returns the wrapped backend's model name
func (r *RateLimitedEmbedding) Model() string {
	return r.inner.Model()
}

// HealthCheck delegates without consuming budget
func (r *RateLimitedEmbedding) HealthCheck(ctx context.Context) error {
	return r.inner.HealthCheck(ctx)
}

// Close closes the wrapped backend
func (r *RateLimitedEmbedding) Close() error {
	return r.inner.Close()
}
