package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// MockJobQueue is an in-memory JobQueue with the same claim ordering
// as the Postgres adapter.
type MockJobQueue struct {
	mu   sync.Mutex
	jobs map[string]*domain.EmbeddingJob
	seq  int
	ord  map[string]int

	// FailClaim forces ClaimNext to return ErrStorage
	FailClaim bool
}

// NewMockJobQueue creates a new MockJobQueue
func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{
		jobs: make(map[string]*domain.EmbeddingJob),
		ord:  make(map[string]int),
	}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.EmbeddingJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.jobs[job.ID] = job
	m.ord[job.ID] = m.seq
	return nil
}

func (m *MockJobQueue) EnqueueBatch(ctx context.Context, jobs []*domain.EmbeddingJob) error {
	for _, job := range jobs {
		if err := m.Enqueue(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockJobQueue) ClaimNext(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailClaim {
		return nil, domain.ErrStorage
	}

	var ready []*domain.EmbeddingJob
	for _, job := range m.jobs {
		if job.IsReady() {
			ready = append(ready, job)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.AvailableAt.Equal(b.AvailableAt) {
			return a.AvailableAt.Before(b.AvailableAt)
		}
		return m.ord[a.ID] < m.ord[b.ID]
	})
	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	for _, job := range ready {
		job.MarkProcessing()
	}
	return ready, nil
}

func (m *MockJobQueue) MarkCompleted(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.MarkCompleted()
	return nil
}

func (m *MockJobQueue) MarkFailed(ctx context.Context, jobID string, reason string, retry bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.MarkFailed(reason, retry)
	return nil
}

func (m *MockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.EmbeddingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *MockJobQueue) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.EmbeddingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*domain.EmbeddingJob
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.DocumentID != "" && job.DocumentID != filter.DocumentID {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return m.ord[jobs[i].ID] < m.ord[jobs[j].ID] })
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

func (m *MockJobQueue) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, job := range m.jobs {
		if job.Status == domain.JobStatusCompleted && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MockJobQueue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.QueueStats{}
	for _, job := range m.jobs {
		switch job.Status {
		case domain.JobStatusPending:
			stats.PendingCount++
		case domain.JobStatusProcessing:
			stats.ProcessingCount++
		case domain.JobStatusCompleted:
			stats.CompletedCount++
		case domain.JobStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockJobQueue) Ping(ctx context.Context) error { return nil }

func (m *MockJobQueue) Close() error { return nil }
