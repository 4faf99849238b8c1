package mocks

import (
	"context"
	"sync"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// MockReranker reverses candidate order so tests can tell the rerank
// pass ran.
type MockReranker struct {
	mu    sync.Mutex
	calls int

	// Err, when set, is returned by Rerank
	Err error
}

// NewMockReranker creates a new MockReranker
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []*domain.RankedChunk) ([]*domain.RankedChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*domain.RankedChunk, len(candidates))
	for i, c := range candidates {
		out[len(candidates)-1-i] = c
	}
	return out, nil
}

func (m *MockReranker) Ping(ctx context.Context) error { return nil }

func (m *MockReranker) Close() error { return nil }

// Calls returns the number of Rerank invocations
func (m *MockReranker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
