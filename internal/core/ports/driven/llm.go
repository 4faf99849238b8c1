package driven

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// ChatService provides chat-completion capabilities for answering and
// history summarisation.
type ChatService interface {
	// Complete generates an answer from a fixed system prompt, the
	// assembled conversation context, and the user's question.
	Complete(ctx context.Context, systemPrompt string, conversation []domain.ChatMessage, userPrompt string) (string, error)

	// Summarise condenses overflowing chat history into a short summary.
	// maxLen is a hint for maximum length (the model may not respect exactly).
	Summarise(ctx context.Context, content string, maxLen int) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the chat service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the chat service
	Close() error
}
