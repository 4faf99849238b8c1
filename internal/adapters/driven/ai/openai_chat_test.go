package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeCompletion(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
}

func TestOpenAIChat_Complete(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeCompletion(w, "O total das notas é R$ 1.500,00.")
	})

	svc, err := NewOpenAIChat("test-key", "gpt-4o-mini", srv.URL)
	require.NoError(t, err)
	defer svc.Close()

	conversation := []domain.ChatMessage{
		{Role: domain.MessageRoleUser, Content: "quantas notas tenho?"},
		{Role: domain.MessageRoleAssistant, Content: "Você tem 3 documentos."},
	}

	answer, err := svc.Complete(context.Background(), "Você é um assistente fiscal.", conversation, "qual o total?")
	require.NoError(t, err)
	assert.Equal(t, "O total das notas é R$ 1.500,00.", answer)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "Você é um assistente fiscal.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, "user", captured.Messages[3].Role)
	assert.Equal(t, "qual o total?", captured.Messages[3].Content)
}

func TestOpenAIChat_Summarise(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeCompletion(w, "Usuário perguntou sobre totais de NFe.")
	})

	svc, err := NewOpenAIChat("test-key", "", srv.URL)
	require.NoError(t, err)

	summary, err := svc.Summarise(context.Background(), "conversa longa aqui", 500)
	require.NoError(t, err)
	assert.Equal(t, "Usuário perguntou sobre totais de NFe.", summary)
	require.Len(t, captured.Messages, 1)
	assert.Contains(t, captured.Messages[0].Content, "conversa longa aqui")
	assert.Equal(t, 500, captured.MaxTokens)
}

func TestOpenAIChat_APIError(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "context length exceeded", "type": "invalid_request_error"},
		})
	})

	svc, err := NewOpenAIChat("test-key", "", srv.URL)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "prompt", nil, "pergunta")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context length exceeded")
}

func TestOpenAIChat_RateLimited(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	svc, err := NewOpenAIChat("test-key", "", srv.URL)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "prompt", nil, "pergunta")
	rle, ok := domain.IsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, rle.RetryAfter)
}
