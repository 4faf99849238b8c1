package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driving"
)

// Ensure ChatSessionManager implements ChatSessionService
var _ driving.ChatSessionService = (*ChatSessionManager)(nil)

const maxSessionTitle = 120

// ChatSessionManager manages conversation lifecycle. Answering happens
// in the RAG orchestrator; this service owns the sessions themselves.
type ChatSessionManager struct {
	sessionStore  driven.SessionStore
	responseCache driven.ResponseCache
	logger        *slog.Logger
}

func NewChatSessionManager(sessionStore driven.SessionStore, responseCache driven.ResponseCache, logger *slog.Logger) *ChatSessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatSessionManager{
		sessionStore:  sessionStore,
		responseCache: responseCache,
		logger:        logger,
	}
}

func (m *ChatSessionManager) Create(ctx context.Context, title string) (*domain.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Nova conversa"
	}
	if len([]rune(title)) > maxSessionTitle {
		title = string([]rune(title)[:maxSessionTitle])
	}

	session := domain.NewChatSession(title)
	if err := m.sessionStore.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.logger.Info("chat session created", "session_id", session.ID)
	return session, nil
}

func (m *ChatSessionManager) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	return m.sessionStore.GetSession(ctx, id)
}

func (m *ChatSessionManager) List(ctx context.Context, limit, offset int) ([]*domain.ChatSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return m.sessionStore.ListSessions(ctx, limit, offset)
}

// Delete removes the session, its messages and any cached answers
// scoped to it. Cache invalidation is best-effort.
func (m *ChatSessionManager) Delete(ctx context.Context, id string) error {
	if _, err := m.sessionStore.GetSession(ctx, id); err != nil {
		return err
	}
	if err := m.sessionStore.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if m.responseCache != nil {
		if err := m.responseCache.InvalidateSession(ctx, id); err != nil {
			m.logger.Warn("failed to invalidate cached answers", "session_id", id, "error", err)
		}
	}
	m.logger.Info("chat session deleted", "session_id", id)
	return nil
}

func (m *ChatSessionManager) History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := m.sessionStore.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.sessionStore.GetMessages(ctx, sessionID, limit)
}
