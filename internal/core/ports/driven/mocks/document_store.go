package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	history   map[string][]*domain.HistoryEvent

	// FailGet forces Get to return ErrStorage
	FailGet bool
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
		history:   make(map[string][]*domain.HistoryEvent),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailGet {
		return nil, domain.ErrStorage
	}
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) List(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*domain.Document
	for _, doc := range m.documents {
		if filter.DocumentType != "" && doc.DocumentType != filter.DocumentType {
			continue
		}
		if filter.IssuerID != "" && doc.IssuerID != filter.IssuerID {
			continue
		}
		if filter.Status != "" && doc.EmbeddingStatus != filter.Status {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	total := len(docs)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &domain.DocumentPage{
		Documents:  docs[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	delete(m.history, id)
	return nil
}

func (m *MockDocumentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents), nil
}

func (m *MockDocumentStore) CountByStatus(ctx context.Context, status domain.EmbeddingStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, doc := range m.documents {
		if doc.EmbeddingStatus == status {
			count++
		}
	}
	return count, nil
}

func (m *MockDocumentStore) SaveHistoryEvent(ctx context.Context, event *domain.HistoryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[event.DocumentID] = append(m.history[event.DocumentID], event)
	return nil
}

func (m *MockDocumentStore) GetHistory(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.history[documentID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]*domain.HistoryEvent, len(events))
	copy(out, events)
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// HistoryActions returns the recorded actions for a document in order
func (m *MockDocumentStore) HistoryActions(documentID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var actions []string
	for _, e := range m.history[documentID] {
		actions = append(actions, e.Action)
	}
	return actions
}
