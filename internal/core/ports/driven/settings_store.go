package driven

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// SettingsStore persists AI provider configuration.
// API keys are encrypted at rest by the implementation.
type SettingsStore interface {
	// GetAISettings retrieves the provider configuration.
	// Returns domain.ErrNotFound when nothing has been configured yet.
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	// SaveAISettings creates or replaces the provider configuration
	SaveAISettings(ctx context.Context, settings *domain.AISettings) error
}

// AIServiceFactory creates AI services from persisted settings.
type AIServiceFactory interface {
	// CreateEmbeddingService builds the embedding chain from settings.
	// Returns nil, nil when settings are not configured.
	CreateEmbeddingService(settings *domain.AISettings, limits domain.RateLimitSettings) (EmbeddingService, error)

	// CreateChatService builds the chat-completion service from settings.
	// Returns nil, nil when settings are not configured.
	CreateChatService(settings *domain.AISettings) (ChatService, error)

	// CreateReranker builds the optional cross-encoder scorer.
	// Returns nil, nil when settings are not configured.
	CreateReranker(settings *domain.AISettings) (Reranker, error)
}
