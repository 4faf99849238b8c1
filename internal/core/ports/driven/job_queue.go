package driven

import (
	"context"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// JobQueue is the durable work list of "embed this document" tasks.
// The Postgres implementation claims with row-level locking and
// SKIP LOCKED so concurrent workers never double-claim a job.
type JobQueue interface {
	// Enqueue adds a job to the queue. Jobs without a document ID are
	// rejected with domain.ErrInvalidInput.
	Enqueue(ctx context.Context, job *domain.EmbeddingJob) error

	// EnqueueBatch adds multiple jobs atomically.
	EnqueueBatch(ctx context.Context, jobs []*domain.EmbeddingJob) error

	// ClaimNext atomically selects up to limit pending jobs whose
	// available_at has passed, ordered by priority desc, then
	// available_at, then creation order, and flips them to processing
	// incrementing attempts. Concurrent claimers never receive the same job.
	ClaimNext(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error)

	// MarkCompleted acknowledges successful completion of a job.
	MarkCompleted(ctx context.Context, jobID string) error

	// MarkFailed records a failure. With retry=true and attempts below
	// max_attempts the job returns to pending with backoff via
	// available_at; otherwise it fails permanently.
	MarkFailed(ctx context.Context, jobID string, reason string, retry bool) error

	// GetJob retrieves a job by ID (for status checking).
	GetJob(ctx context.Context, jobID string) (*domain.EmbeddingJob, error)

	// ListJobs retrieves jobs matching the filter criteria.
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.EmbeddingJob, error)

	// PurgeCompleted removes completed jobs older than the retention
	// window. Housekeeping only; returns the number of rows removed.
	PurgeCompleted(ctx context.Context, olderThan time.Duration) (int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*domain.QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
