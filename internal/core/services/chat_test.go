package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven/mocks"
)

func TestChatSessionManager_Create(t *testing.T) {
	store := mocks.NewMockSessionStore()
	svc := NewChatSessionManager(store, nil, nil)

	session, err := svc.Create(context.Background(), "Notas de agosto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID == "" {
		t.Error("expected generated session ID")
	}
	if session.Title != "Notas de agosto" {
		t.Errorf("unexpected title %q", session.Title)
	}

	stored, err := store.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.Title != session.Title {
		t.Error("persisted title differs")
	}
}

func TestChatSessionManager_Create_DefaultTitle(t *testing.T) {
	svc := NewChatSessionManager(mocks.NewMockSessionStore(), nil, nil)

	session, err := svc.Create(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Title != "Nova conversa" {
		t.Errorf("expected default title, got %q", session.Title)
	}
}

func TestChatSessionManager_Delete(t *testing.T) {
	store := mocks.NewMockSessionStore()
	cache := mocks.NewMockResponseCache()
	svc := NewChatSessionManager(store, cache, nil)

	session, _ := svc.Create(context.Background(), "t")
	_ = store.AppendMessage(context.Background(), domain.NewChatMessage(session.ID, domain.MessageRoleUser, "oi"))
	_ = cache.Put(context.Background(), session.ID, "q", nil, "resposta", nil, 0)

	if err := svc.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.GetSession(context.Background(), session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("session should be gone")
	}
	if cache.Len() != 0 {
		t.Error("cached answers for the session should be invalidated")
	}
}

func TestChatSessionManager_Delete_NotFound(t *testing.T) {
	svc := NewChatSessionManager(mocks.NewMockSessionStore(), nil, nil)
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChatSessionManager_History(t *testing.T) {
	store := mocks.NewMockSessionStore()
	svc := NewChatSessionManager(store, nil, nil)

	session, _ := svc.Create(context.Background(), "t")
	_ = store.AppendMessage(context.Background(), domain.NewChatMessage(session.ID, domain.MessageRoleUser, "pergunta"))
	_ = store.AppendMessage(context.Background(), domain.NewChatMessage(session.ID, domain.MessageRoleAssistant, "resposta"))

	msgs, err := svc.History(context.Background(), session.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.MessageRoleUser || msgs[1].Role != domain.MessageRoleAssistant {
		t.Error("messages out of order")
	}
}

func TestChatSessionManager_History_UnknownSession(t *testing.T) {
	svc := NewChatSessionManager(mocks.NewMockSessionStore(), nil, nil)
	if _, err := svc.History(context.Background(), "missing", 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
