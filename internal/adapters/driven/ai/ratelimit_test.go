package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven/mocks"
)

func TestRateLimitedEmbedding_MinuteWindow(t *testing.T) {
	inner := mocks.NewMockEmbeddingService()
	svc := NewRateLimitedEmbedding(inner, domain.RateLimitSettings{PerMinute: 2})

	ctx := context.Background()
	_, err := svc.EmbedQuery(ctx, "primeira")
	require.NoError(t, err)
	_, err = svc.EmbedQuery(ctx, "segunda")
	require.NoError(t, err)

	_, err = svc.EmbedQuery(ctx, "terceira")
	rle, ok := domain.IsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, "minute", rle.Window)
	assert.Greater(t, rle.RetryAfter.Seconds(), 0.0)

	// The backend never saw the rejected call.
	assert.Equal(t, 2, inner.Calls())
}

func TestRateLimitedEmbedding_HourWindow(t *testing.T) {
	inner := mocks.NewMockEmbeddingService()
	svc := NewRateLimitedEmbedding(inner, domain.RateLimitSettings{PerHour: 1})

	ctx := context.Background()
	_, err := svc.Embed(ctx, []string{"lote"})
	require.NoError(t, err)

	_, err = svc.Embed(ctx, []string{"lote"})
	rle, ok := domain.IsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, "hour", rle.Window)
	assert.Equal(t, 1, inner.Calls())
}

func TestRateLimitedEmbedding_DisabledLimits(t *testing.T) {
	inner := mocks.NewMockEmbeddingService()
	svc := NewRateLimitedEmbedding(inner, domain.RateLimitSettings{})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := svc.EmbedQuery(ctx, "consulta")
		require.NoError(t, err)
	}
	assert.Equal(t, 10, inner.Calls())
}

func TestRateLimitedEmbedding_HealthCheckBypassesBudget(t *testing.T) {
	inner := mocks.NewMockEmbeddingService()
	svc := NewRateLimitedEmbedding(inner, domain.RateLimitSettings{PerMinute: 1})

	ctx := context.Background()
	_, err := svc.EmbedQuery(ctx, "consulta")
	require.NoError(t, err)

	assert.NoError(t, svc.HealthCheck(ctx))
}
