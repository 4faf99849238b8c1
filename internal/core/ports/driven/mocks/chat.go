package mocks

import (
	"context"
	"sync"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// MockChatService is a canned-response ChatService for testing
type MockChatService struct {
	mu    sync.Mutex
	calls int

	// Response is returned by Complete (default "mock answer")
	Response string
	// Summary is returned by Summarise (default "mock summary")
	Summary string
	// Err, when set, is returned by Complete and Summarise
	Err error

	LastSystemPrompt string
	LastUserPrompt   string
	LastConversation []domain.ChatMessage
}

// NewMockChatService creates a new MockChatService
func NewMockChatService() *MockChatService {
	return &MockChatService{Response: "mock answer", Summary: "mock summary"}
}

func (m *MockChatService) Complete(ctx context.Context, systemPrompt string, conversation []domain.ChatMessage, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.LastSystemPrompt = systemPrompt
	m.LastUserPrompt = userPrompt
	m.LastConversation = conversation
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockChatService) Summarise(ctx context.Context, content string, maxLen int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Summary, nil
}

func (m *MockChatService) Model() string { return "mock-chat" }

func (m *MockChatService) Ping(ctx context.Context) error { return nil }

func (m *MockChatService) Close() error { return nil }

// Calls returns the number of Complete invocations
func (m *MockChatService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
