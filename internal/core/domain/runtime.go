package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// AI capability flags change when services are reconfigured via the API.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	CacheBackend string // "redis" or "none"

	// Dynamic capability flags
	embeddingAvailable bool
	chatAvailable      bool
	rerankerAvailable  bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(cacheBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		CacheBackend: cacheBackend,
	}
}

// EmbeddingAvailable returns whether an embedding service is configured
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// ChatAvailable returns whether a chat-completion service is configured
func (c *RuntimeConfig) ChatAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatAvailable
}

// RerankerAvailable returns whether the optional reranker is configured
func (c *RuntimeConfig) RerankerAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rerankerAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetChatAvailable updates the chat availability flag
func (c *RuntimeConfig) SetChatAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatAvailable = available
}

// SetRerankerAvailable updates the reranker availability flag
func (c *RuntimeConfig) SetRerankerAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rerankerAvailable = available
}
