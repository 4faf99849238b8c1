package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// MockEmbeddingService produces deterministic embeddings for testing:
// each text maps to a vector whose direction depends only on the text.
type MockEmbeddingService struct {
	mu    sync.Mutex
	calls int

	// Fixed, when set, is returned for every text instead of the
	// derived vector
	Fixed []float32
	// Err, when set, is returned by Embed and EmbedQuery
	Err error
	// BatchErr, when set, is returned by Embed only; EmbedQuery still
	// answers (or returns Err), to exercise the per-chunk fallback
	BatchErr error
	// FailHealthCheck forces HealthCheck to fail
	FailHealthCheck bool

	dimensions int
	closed     bool
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{dimensions: 4}
}

func (m *MockEmbeddingService) vector(text string) []float32 {
	if m.Fixed != nil {
		return m.Fixed
	}
	v := make([]float32, m.dimensions)
	for i, r := range text {
		v[i%m.dimensions] += float32(r % 13)
	}
	if len(text) == 0 {
		v[0] = 1
	}
	return v
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.BatchErr != nil {
		return nil, m.BatchErr
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts", domain.ErrEmbeddingFailed)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.vector(query), nil
}

func (m *MockEmbeddingService) Dimensions() int { return m.dimensions }

func (m *MockEmbeddingService) Model() string { return "mock-embedding" }

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	if m.FailHealthCheck {
		return domain.ErrServiceUnavailable
	}
	return nil
}

func (m *MockEmbeddingService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the number of Embed/EmbedQuery invocations
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called
func (m *MockEmbeddingService) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
