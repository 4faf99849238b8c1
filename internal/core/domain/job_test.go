package domain

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Error("expected non-empty IDs")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	// Base64 URL encoding of 16 bytes = 22 chars
	if len(id1) != 22 {
		t.Errorf("expected ID length 22, got %d", len(id1))
	}
}

func TestNewEmbeddingJob(t *testing.T) {
	job := NewEmbeddingJob("doc-123", 10, 5)

	if job.ID == "" {
		t.Error("expected non-empty ID")
	}
	if job.DocumentID != "doc-123" {
		t.Errorf("expected document ID doc-123, got %s", job.DocumentID)
	}
	if job.Status != JobStatusPending {
		t.Errorf("expected status %s, got %s", JobStatusPending, job.Status)
	}
	if job.Priority != 10 {
		t.Errorf("expected priority 10, got %d", job.Priority)
	}
	if job.Attempts != 0 {
		t.Errorf("expected attempts 0, got %d", job.Attempts)
	}
	if job.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", job.MaxAttempts)
	}
	if job.AvailableAt.IsZero() {
		t.Error("expected AvailableAt to be set")
	}
}

func TestNewEmbeddingJob_DefaultMaxAttempts(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 0)

	if job.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", job.MaxAttempts)
	}
}

func TestEmbeddingJob_Validate(t *testing.T) {
	job := NewEmbeddingJob("", 0, 3)

	if err := job.Validate(); err != ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	job.DocumentID = "doc-1"
	if err := job.Validate(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestEmbeddingJob_MarkProcessing(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 3)

	job.MarkProcessing()

	if job.Status != JobStatusProcessing {
		t.Errorf("expected status %s, got %s", JobStatusProcessing, job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("expected attempts 1, got %d", job.Attempts)
	}
	if job.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
}

func TestEmbeddingJob_MarkCompleted(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 3)
	job.MarkProcessing()
	job.LastError = "previous failure"

	job.MarkCompleted()

	if job.Status != JobStatusCompleted {
		t.Errorf("expected status %s, got %s", JobStatusCompleted, job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if job.LastError != "" {
		t.Error("expected error to be cleared")
	}
}

func TestEmbeddingJob_MarkFailed_Retry(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 3)
	job.MarkProcessing()

	before := time.Now()
	job.MarkFailed("provider timeout", true)

	if job.Status != JobStatusPending {
		t.Errorf("expected status %s, got %s", JobStatusPending, job.Status)
	}
	if job.LastError != "provider timeout" {
		t.Errorf("expected error recorded, got %q", job.LastError)
	}
	if !job.AvailableAt.After(before) {
		t.Error("expected AvailableAt pushed into the future for backoff")
	}
}

func TestEmbeddingJob_MarkFailed_NoRetryRequested(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 3)
	job.MarkProcessing()

	job.MarkFailed("malformed document", false)

	if job.Status != JobStatusFailed {
		t.Errorf("expected status %s, got %s", JobStatusFailed, job.Status)
	}
}

func TestEmbeddingJob_RetryBound(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 2)

	// First attempt fails, retry allowed
	job.MarkProcessing()
	job.MarkFailed("fail 1", true)
	if job.Status != JobStatusPending {
		t.Fatalf("expected pending after first failure, got %s", job.Status)
	}

	// Second attempt exhausts the budget; retry=true must not matter
	job.MarkProcessing()
	job.MarkFailed("fail 2", true)
	if job.Status != JobStatusFailed {
		t.Errorf("expected permanent failure at max attempts, got %s", job.Status)
	}
	if job.CanRetry() {
		t.Error("expected CanRetry to be false at max attempts")
	}
}

func TestEmbeddingJob_BackoffGrowsAndCaps(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 100)

	var last time.Duration
	for i := 0; i < 12; i++ {
		job.MarkProcessing()
		now := time.Now()
		job.MarkFailed("flaky", true)
		delay := job.AvailableAt.Sub(now)

		if delay < last {
			t.Errorf("attempt %d: backoff shrank from %s to %s", i+1, last, delay)
		}
		if delay > 5*time.Minute+time.Second {
			t.Errorf("attempt %d: backoff %s exceeds cap", i+1, delay)
		}
		last = delay
	}
}

func TestEmbeddingJob_IsReady(t *testing.T) {
	job := NewEmbeddingJob("doc-1", 0, 3)
	if !job.IsReady() {
		t.Error("expected fresh job to be ready")
	}

	job.AvailableAt = time.Now().Add(time.Hour)
	if job.IsReady() {
		t.Error("expected job in backoff to not be ready")
	}

	job.AvailableAt = time.Now().Add(-time.Second)
	job.Status = JobStatusProcessing
	if job.IsReady() {
		t.Error("expected processing job to not be ready")
	}
}
