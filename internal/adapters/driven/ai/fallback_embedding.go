package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Ensure FallbackEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*FallbackEmbedding)(nil)

// FallbackEmbedding chains embedding backends in priority order: each
// call tries the primary first and walks down the chain on failure.
//
// Mixing backends mixes vector spaces: chunks embedded by the fallback
// are only comparable with queries embedded by the same model. The
// chunk dimension check at save time keeps mismatched vectors out of
// the index, which is the lesser evil compared to halting ingestion
// while the primary is down.
type FallbackEmbedding struct {
	chain  []driven.EmbeddingService
	logger *slog.Logger
}

// NewFallbackEmbedding builds the chain. At least one backend is required.
func NewFallbackEmbedding(logger *slog.Logger, chain ...driven.EmbeddingService) (*FallbackEmbedding, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("at least one embedding backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEmbedding{chain: chain, logger: logger}, nil
}

// Embed tries each backend in order until one succeeds.
func (f *FallbackEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for i, svc := range f.chain {
		embeddings, err := svc.Embed(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err
		if i < len(f.chain)-1 {
			f.logger.Warn("embedding backend failed, trying fallback",
				"model", svc.Model(), "error", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: all backends failed: %v", domain.ErrEmbeddingFailed, lastErr)
}

// EmbedQuery tries each backend in order until one succeeds.
func (f *FallbackEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	var lastErr error
	for i, svc := range f.chain {
		vec, err := svc.EmbedQuery(ctx, query)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if i < len(f.chain)-1 {
			f.logger.Warn("embedding backend failed, trying fallback",
				"model", svc.Model(), "error", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: all backends failed: %v", domain.ErrEmbeddingFailed, lastErr)
}

// Dimensions returns the primary backend's dimension
func (f *FallbackEmbedding) Dimensions() int {
	return f.chain[0].Dimensions()
}

// Model returns the primary backend's model name
func (f *FallbackEmbedding) Model() string {
	return f.chain[0].Model()
}

// HealthCheck passes when any backend in the chain is healthy
func (f *FallbackEmbedding) HealthCheck(ctx context.Context) error {
	var lastErr error
	for _, svc := range f.chain {
		if err := svc.HealthCheck(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

// Close closes every backend in the chain
func (f *FallbackEmbedding) Close() error {
	var firstErr error
	for _, svc := range f.chain {
		if err := svc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
