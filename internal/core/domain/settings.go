package domain

import "time"

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// RequiresAPIKey returns true for hosted providers.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// EmbeddingSettings configures one embedding backend.
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ChatSettings configures the chat-completion service.
type ChatSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if chat settings are properly configured
func (c *ChatSettings) IsConfigured() bool {
	if c.Provider == "" {
		return false
	}
	if c.Provider.RequiresAPIKey() && c.APIKey == "" {
		return false
	}
	return true
}

// RerankerSettings configures the optional cross-encoder scorer.
type RerankerSettings struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model,omitempty"`
}

// IsConfigured returns true when a scoring endpoint is set.
func (r *RerankerSettings) IsConfigured() bool {
	return r != nil && r.BaseURL != ""
}

// AISettings holds the full AI service configuration.
// The embedding chain is ordered: Embedding first, then each Fallback.
type AISettings struct {
	Embedding EmbeddingSettings   `json:"embedding"`
	Fallbacks []EmbeddingSettings `json:"fallbacks,omitempty"`
	Chat      ChatSettings        `json:"chat"`
	Reranker  RerankerSettings    `json:"reranker"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// RateLimitSettings caps provider calls per sliding window.
type RateLimitSettings struct {
	PerMinute int `json:"per_minute"`
	PerHour   int `json:"per_hour"`
}

// DefaultRateLimits returns the default provider call budget.
func DefaultRateLimits() RateLimitSettings {
	return RateLimitSettings{PerMinute: 60, PerHour: 1000}
}
