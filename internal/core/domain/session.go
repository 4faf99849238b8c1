package domain

import "time"

// MessageRole identifies who produced a chat message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatSession scopes a conversation. Cached answers are only reused
// within the session that produced them.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"` // rolling summary of trimmed history
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChatSession creates an empty session.
func NewChatSession(title string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        GenerateID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChatMessage is one turn in a session's history.
type ChatMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewChatMessage creates a message for the given session.
func NewChatMessage(sessionID string, role MessageRole, content string) *ChatMessage {
	return &ChatMessage{
		ID:        GenerateID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
