package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore implements driven.SessionStore using PostgreSQL
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// SaveSession creates or updates a session
func (s *SessionStore) SaveSession(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, title, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.Title, session.Summary, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: save session: %v", domain.ErrStorage, err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (s *SessionStore) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	session := &domain.ChatSession{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, summary, created_at, updated_at FROM chat_sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.Title, &session.Summary, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", domain.ErrStorage, err)
	}
	return session, nil
}

// ListSessions retrieves sessions, newest first
func (s *SessionStore) ListSessions(ctx context.Context, limit, offset int) ([]*domain.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, summary, created_at, updated_at FROM chat_sessions
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var sessions []*domain.ChatSession
	for rows.Next() {
		session := &domain.ChatSession{}
		if err := rows.Scan(&session.ID, &session.Title, &session.Summary, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan session: %v", domain.ErrStorage, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session; messages go with it by cascade
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", domain.ErrStorage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", domain.ErrStorage, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendMessage adds a message to a session's history
func (s *SessionStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: append message: %v", domain.ErrStorage, err)
	}
	return nil
}

// GetMessages retrieves the most recent messages in chronological order
func (s *SessionStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	// Take the newest N, then flip back to chronological order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM (
			SELECT id, session_id, role, content, created_at
			FROM chat_messages WHERE session_id = $1
			ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: get messages: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		msg := &domain.ChatMessage{}
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", domain.ErrStorage, err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages in a session
func (s *SessionStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count messages: %v", domain.ErrStorage, err)
	}
	return count, nil
}
