package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// JobStatus represents the current state of an embedding job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// backoffCap bounds the retry delay so a flapping provider cannot push
// jobs arbitrarily far into the future.
const backoffCap = 5 * time.Minute

// EmbeddingJob is a unit of deferred work: generate embeddings for one document.
type EmbeddingJob struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// DocumentID is the document to embed
	DocumentID string `json:"document_id"`

	// Payload carries job-specific data, e.g. {"reprocess": "true"}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the job
	Status JobStatus `json:"status"`

	// Priority determines claim order (higher = more urgent, range -100..100)
	Priority int `json:"priority"`

	// Attempts is how many times this job has been claimed
	Attempts int `json:"attempts"`

	// MaxAttempts is the retry budget before permanent failure
	MaxAttempts int `json:"max_attempts"`

	// LastError contains the most recent failure message
	LastError string `json:"last_error,omitempty"`

	// AvailableAt is the earliest time a worker may claim the job
	AvailableAt time.Time `json:"available_at"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewEmbeddingJob creates a pending job for the given document.
func NewEmbeddingJob(documentID string, priority, maxAttempts int) *EmbeddingJob {
	now := time.Now()
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &EmbeddingJob{
		ID:          GenerateID(),
		DocumentID:  documentID,
		Payload:     map[string]string{},
		Status:      JobStatusPending,
		Priority:    priority,
		MaxAttempts: maxAttempts,
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate rejects malformed jobs at the queue boundary.
func (j *EmbeddingJob) Validate() error {
	if j.DocumentID == "" {
		return ErrInvalidInput
	}
	return nil
}

// CanRetry returns true while the retry budget is not exhausted.
func (j *EmbeddingJob) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// IsReady returns true if a worker may claim the job now.
func (j *EmbeddingJob) IsReady() bool {
	return j.Status == JobStatusPending && !time.Now().Before(j.AvailableAt)
}

// MarkProcessing flips the job to processing and burns one attempt.
func (j *EmbeddingJob) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Attempts++
}

// MarkCompleted flips the job to its terminal success state.
func (j *EmbeddingJob) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.LastError = ""
}

// MarkFailed records a failure. With retry=true and budget remaining the
// job returns to pending with exponential backoff; otherwise it fails
// permanently regardless of retry.
func (j *EmbeddingJob) MarkFailed(errMsg string, retry bool) {
	now := time.Now()
	j.UpdatedAt = now
	j.LastError = errMsg

	if retry && j.CanRetry() {
		j.Status = JobStatusPending
		j.AvailableAt = now.Add(j.backoff())
		return
	}
	j.Status = JobStatusFailed
}

// backoff computes the retry delay: 1s, 2s, 4s, ... capped at 5 minutes.
func (j *EmbeddingJob) backoff() time.Duration {
	d := time.Duration(1<<j.Attempts) * time.Second
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

// JobFilter specifies criteria for listing jobs
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}

// QueueStats contains queue statistics
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`

	// OldestPendingAge is the age of the oldest pending job in seconds
	OldestPendingAge int64 `json:"oldest_pending_age"`
}

// ProcessResult is the outcome of processing one document for indexing.
type ProcessResult struct {
	DocumentID  string        `json:"document_id"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ChunksSaved int           `json:"chunks_saved"`
	Duration    time.Duration `json:"duration"`
}
