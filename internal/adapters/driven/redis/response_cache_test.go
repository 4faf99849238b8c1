package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestResponseCache_PutGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewResponseCache(client)
	ctx := context.Background()

	contextMap := map[string]string{"doc-1": "Valor total: R$ 100"}
	err := cache.Put(ctx, "sess-1", "qual o valor?", contextMap, "R$ 100,00", map[string]string{"model": "gpt"}, time.Hour)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, err := cache.Get(ctx, "sess-1", "qual o valor?", contextMap)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected cache hit")
	}
	if entry.ResponseText != "R$ 100,00" {
		t.Errorf("unexpected response %q", entry.ResponseText)
	}
	if entry.Metadata["model"] != "gpt" {
		t.Errorf("metadata not preserved: %v", entry.Metadata)
	}
}

func TestResponseCache_MissOnDifferentContext(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewResponseCache(client)
	ctx := context.Background()

	_ = cache.Put(ctx, "sess-1", "pergunta", map[string]string{"doc-1": "versão antiga"}, "resposta", nil, time.Hour)

	// Same query, different retrieved context: the answer may differ,
	// so it must not be served from cache.
	entry, err := cache.Get(ctx, "sess-1", "pergunta", map[string]string{"doc-1": "versão nova"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry != nil {
		t.Error("expected miss when context changed")
	}
}

func TestResponseCache_ScopedBySession(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewResponseCache(client)
	ctx := context.Background()

	contextMap := map[string]string{"doc-1": "conteúdo"}
	_ = cache.Put(ctx, "sess-1", "pergunta", contextMap, "resposta", nil, time.Hour)

	entry, err := cache.Get(ctx, "sess-2", "pergunta", contextMap)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry != nil {
		t.Error("cache entries must not leak across sessions")
	}
}

func TestResponseCache_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewResponseCache(client)
	ctx := context.Background()

	contextMap := map[string]string{"doc-1": "conteúdo"}
	_ = cache.Put(ctx, "sess-1", "pergunta", contextMap, "resposta", nil, time.Minute)

	mr.FastForward(2 * time.Minute)

	entry, err := cache.Get(ctx, "sess-1", "pergunta", contextMap)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry != nil {
		t.Error("expected miss after TTL expiry")
	}
}

func TestResponseCache_InvalidateSession(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewResponseCache(client)
	ctx := context.Background()

	contextMap := map[string]string{"doc-1": "conteúdo"}
	_ = cache.Put(ctx, "sess-1", "pergunta a", contextMap, "a", nil, time.Hour)
	_ = cache.Put(ctx, "sess-1", "pergunta b", contextMap, "b", nil, time.Hour)
	_ = cache.Put(ctx, "sess-2", "pergunta a", contextMap, "a", nil, time.Hour)

	if err := cache.InvalidateSession(ctx, "sess-1"); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}

	if entry, _ := cache.Get(ctx, "sess-1", "pergunta a", contextMap); entry != nil {
		t.Error("sess-1 entries should be gone")
	}
	if entry, _ := cache.Get(ctx, "sess-2", "pergunta a", contextMap); entry == nil {
		t.Error("sess-2 entries must survive")
	}
}
