package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// MockResponseCache is an in-memory ResponseCache keyed exactly like
// the Redis adapter: sessionID + ":" + cache key.
type MockResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*domain.CacheEntry
	now     func() time.Time

	Hits   int
	Misses int
	Puts   int
}

// NewMockResponseCache creates a new MockResponseCache
func NewMockResponseCache() *MockResponseCache {
	return &MockResponseCache{
		entries: make(map[string]*domain.CacheEntry),
		now:     time.Now,
	}
}

// SetClock overrides the cache's notion of now, for expiry tests
func (m *MockResponseCache) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockResponseCache) Get(ctx context.Context, sessionID, query string, context map[string]string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionID + ":" + domain.CacheKey(query, context)
	entry, ok := m.entries[key]
	if !ok || entry.Expired(m.now()) {
		m.Misses++
		return nil, nil
	}
	m.Hits++
	return entry, nil
}

func (m *MockResponseCache) Put(ctx context.Context, sessionID, query string, context map[string]string, response string, metadata map[string]string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	key := domain.CacheKey(query, context)
	now := m.now()
	m.entries[sessionID+":"+key] = &domain.CacheEntry{
		CacheKey:     key,
		SessionID:    sessionID,
		ResponseText: response,
		Metadata:     metadata,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	m.Puts++
	return nil
}

func (m *MockResponseCache) InvalidateSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, sessionID+":") {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *MockResponseCache) Ping(ctx context.Context) error { return nil }

// Len returns the number of live entries
func (m *MockResponseCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
