package ai

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory builds AI services from persisted settings
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new AI service factory
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{logger: logger}
}

// CreateEmbeddingService builds the embedding chain from settings: the
// primary backend first, then each configured fallback, wrapped in the
// provider-call rate limiter. Returns nil, nil when nothing is configured.
func (f *Factory) CreateEmbeddingService(settings *domain.AISettings, limits domain.RateLimitSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.Embedding.IsConfigured() {
		return nil, nil
	}

	chain := make([]driven.EmbeddingService, 0, len(settings.Fallbacks)+1)

	primary, err := f.buildEmbedding(settings.Embedding)
	if err != nil {
		return nil, err
	}
	chain = append(chain, primary)

	for i, fb := range settings.Fallbacks {
		if !fb.IsConfigured() {
			f.logger.Warn("skipping unconfigured embedding fallback", "position", i, "provider", fb.Provider)
			continue
		}
		svc, err := f.buildEmbedding(fb)
		if err != nil {
			closeChain(chain)
			return nil, fmt.Errorf("fallback %d: %w", i, err)
		}
		chain = append(chain, svc)
	}

	inner, err := NewFallbackEmbedding(f.logger, chain...)
	if err != nil {
		closeChain(chain)
		return nil, err
	}

	return NewRateLimitedEmbedding(inner, limits), nil
}

func (f *Factory) buildEmbedding(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOllama:
		return NewOllamaEmbedding(settings.BaseURL, settings.Model)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateChatService builds the chat-completion service from settings.
// Returns nil, nil when chat is not configured.
func (f *Factory) CreateChatService(settings *domain.AISettings) (driven.ChatService, error) {
	if settings == nil || !settings.Chat.IsConfigured() {
		return nil, nil
	}

	switch settings.Chat.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIChat(settings.Chat.APIKey, settings.Chat.Model, settings.Chat.BaseURL)
	case domain.AIProviderOllama:
		// Ollama serves the OpenAI chat API under /v1
		baseURL := settings.Chat.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
		}
		return NewOpenAIChat("", settings.Chat.Model, baseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Chat.Provider)
	}
}

// CreateReranker builds the optional cross-encoder scorer.
// Returns nil, nil when no scoring endpoint is configured.
func (f *Factory) CreateReranker(settings *domain.AISettings) (driven.Reranker, error) {
	if settings == nil || !settings.Reranker.IsConfigured() {
		return nil, nil
	}
	return NewHTTPReranker(settings.Reranker.BaseURL, settings.Reranker.Model)
}

func closeChain(chain []driven.EmbeddingService) {
	for _, svc := range chain {
		_ = svc.Close()
	}
}
