package runtime

import (
	"context"
	"sync"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Services holds references to dynamically configurable AI services.
// Embedding, chat and reranker backends can be swapped at runtime via
// the settings API. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	embeddingService driven.EmbeddingService
	chatService      driven.ChatService
	reranker         driven.Reranker
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// ChatService returns the current chat-completion service (may be nil)
func (s *Services) ChatService() driven.ChatService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatService
}

// Reranker returns the current reranker (nil when absent; callers skip
// reranking in that case).
func (s *Services) Reranker() driven.Reranker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reranker
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetChatService updates the chat service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetChatService(svc driven.ChatService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chatService != nil {
		_ = s.chatService.Close()
	}

	s.chatService = svc
	s.config.SetChatAvailable(svc != nil)
}

// SetReranker updates the reranker. Closes the old one if present.
func (s *Services) SetReranker(r driven.Reranker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reranker != nil {
		_ = s.reranker.Close()
	}

	s.reranker = r
	s.config.SetRerankerAvailable(r != nil)
}

// ValidateAndSetEmbedding validates connectivity before setting the
// embedding service.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetChat validates connectivity before setting the chat service.
func (s *Services) ValidateAndSetChat(ctx context.Context, svc driven.ChatService) error {
	if svc == nil {
		s.SetChatService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetChatService(svc)
	return nil
}

// ValidateAndSetReranker validates connectivity before setting the
// reranker. A failed validation leaves the registry without a reranker
// rather than returning an error: the component is optional.
func (s *Services) ValidateAndSetReranker(ctx context.Context, r driven.Reranker) {
	if r == nil {
		s.SetReranker(nil)
		return
	}

	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		s.SetReranker(nil)
		return
	}

	s.SetReranker(r)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.chatService != nil {
		_ = s.chatService.Close()
		s.chatService = nil
	}
	if s.reranker != nil {
		_ = s.reranker.Close()
		s.reranker = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetChatAvailable(false)
	s.config.SetRerankerAvailable(false)

	return nil
}
