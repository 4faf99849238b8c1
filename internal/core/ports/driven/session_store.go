package driven

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// SessionStore persists chat sessions and their message history.
type SessionStore interface {
	// SaveSession creates or updates a session
	SaveSession(ctx context.Context, session *domain.ChatSession) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)

	// ListSessions retrieves sessions, newest first
	ListSessions(ctx context.Context, limit, offset int) ([]*domain.ChatSession, error)

	// DeleteSession removes a session and its messages
	DeleteSession(ctx context.Context, id string) error

	// AppendMessage adds a message to a session's history
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// GetMessages retrieves the most recent messages in chronological order
	GetMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)

	// CountMessages returns the number of messages in a session
	CountMessages(ctx context.Context, sessionID string) (int, error)
}
