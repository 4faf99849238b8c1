package driven

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// Reranker reorders retrieval candidates with a cross-encoder scoring
// pass over (query, candidate-text) pairs.
//
// The component is optional: when it is unavailable callers skip
// reranking and keep the similarity order. A reranker failure must never
// fail the query pipeline.
type Reranker interface {
	// Rerank scores each candidate against the query and returns the
	// candidates sorted by relevance descending.
	Rerank(ctx context.Context, query string, candidates []*domain.RankedChunk) ([]*domain.RankedChunk, error)

	// Ping verifies the scoring backend is reachable
	Ping(ctx context.Context) error

	// Close releases resources held by the reranker
	Close() error
}
