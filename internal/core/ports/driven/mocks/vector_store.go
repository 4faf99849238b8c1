package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// MockVectorStore is an in-memory VectorStore for testing. Search uses
// the same cosine ranking as the real adapter.
type MockVectorStore struct {
	mu       sync.RWMutex
	chunks   map[string]*domain.Chunk
	statuses map[string]domain.EmbeddingStatus

	// FailSave forces SaveChunks to return ErrStorage
	FailSave bool
	// FailSearch forces SearchSimilar to return ErrStorage
	FailSearch bool

	StatusUpdates []domain.EmbeddingStatus
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		chunks:   make(map[string]*domain.Chunk),
		statuses: make(map[string]domain.EmbeddingStatus),
	}
}

func (m *MockVectorStore) SaveChunks(ctx context.Context, chunks []*domain.Chunk) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave {
		return nil, domain.ErrStorage
	}
	var ids []string
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		m.chunks[c.ID] = c
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (m *MockVectorStore) SearchSimilar(ctx context.Context, queryVector []float32, opts driven.SearchOptions) ([]*domain.RankedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailSearch {
		return nil, domain.ErrStorage
	}

	var ranked []*domain.RankedChunk
	for _, c := range m.chunks {
		if opts.Filters.DocumentType != "" && c.Metadata.DocumentType != opts.Filters.DocumentType {
			continue
		}
		if opts.Filters.IssuerID != "" && c.Metadata.IssuerID != opts.Filters.IssuerID {
			continue
		}
		score := domain.CosineSimilarity(queryVector, c.Embedding)
		if score < opts.Threshold {
			continue
		}
		ranked = append(ranked, &domain.RankedChunk{Chunk: c, Similarity: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Similarity > ranked[j].Similarity })
	if opts.MaxResults > 0 && len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}
	return ranked, nil
}

func (m *MockVectorStore) GetDocumentContext(ctx context.Context, queryVector []float32, maxDocuments, maxChunksPerDocument int) ([]*domain.DocumentContext, error) {
	hits, err := m.SearchSimilar(ctx, queryVector, driven.SearchOptions{MaxResults: 100})
	if err != nil {
		return nil, nil
	}
	return domain.GroupByDocument(hits, maxDocuments, maxChunksPerDocument), nil
}

func (m *MockVectorStore) UpdateEmbeddingStatus(ctx context.Context, documentID string, status domain.EmbeddingStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[documentID] = status
	m.StatusUpdates = append(m.StatusUpdates, status)
	return true, nil
}

// Status returns the last status set for a document
func (m *MockVectorStore) Status(documentID string) domain.EmbeddingStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[documentID]
}

func (m *MockVectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.DocumentID == documentID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *MockVectorStore) CountEmbedded(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// ChunkCount returns the number of stored chunks for a document
func (m *MockVectorStore) ChunkCount(documentID string) int {
	return len(m.Chunks(documentID))
}

// Chunks returns a document's stored chunks in sequence order
func (m *MockVectorStore) Chunks(documentID string) []*domain.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var chunks []*domain.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].SequenceNumber < chunks[j].SequenceNumber
	})
	return chunks
}
