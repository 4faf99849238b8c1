package driven

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// SearchOptions tune one similarity search.
type SearchOptions struct {
	// Threshold is the minimum cosine similarity to keep a chunk
	Threshold float32

	// MaxResults truncates the ranked result set
	MaxResults int

	// Filters narrows the scanned corpus by chunk metadata
	Filters domain.DocumentFilter
}

// VectorStore persists chunks with their embeddings and performs
// similarity search over them.
//
// The default implementation is a linear scan computing cosine similarity
// in-process, which is only acceptable at small corpus scale. The
// interface exists so an ANN-indexed implementation can be swapped in
// without touching the orchestrator.
type VectorStore interface {
	// SaveChunks persists a batch and returns the stored chunk IDs.
	// Chunks whose embedding is missing or whose owning document is
	// unknown are skipped and logged; they never abort the batch.
	SaveChunks(ctx context.Context, chunks []*domain.Chunk) ([]string, error)

	// SearchSimilar ranks stored chunks against the query vector.
	// Results are sorted by similarity descending and truncated to
	// opts.MaxResults; entries below opts.Threshold are dropped.
	SearchSimilar(ctx context.Context, queryVector []float32, opts SearchOptions) ([]*domain.RankedChunk, error)

	// GetDocumentContext groups the best chunks per document for prompt
	// assembly: top maxDocuments by aggregate similarity, at most
	// maxChunksPerDocument chunks each, text concatenated in reading order.
	// Failures degrade to an empty result since the output feeds a
	// best-effort prompt.
	GetDocumentContext(ctx context.Context, queryVector []float32, maxDocuments, maxChunksPerDocument int) ([]*domain.DocumentContext, error)

	// UpdateEmbeddingStatus performs a single-row conditional update.
	// Returns false, not an error, when no row matched.
	UpdateEmbeddingStatus(ctx context.Context, documentID string, status domain.EmbeddingStatus) (bool, error)

	// DeleteByDocument removes all chunks owned by a document
	// (used before reprocessing).
	DeleteByDocument(ctx context.Context, documentID string) error

	// CountEmbedded returns the number of stored chunks that carry an
	// embedding; used to tell "nothing indexed" from "nothing relevant".
	CountEmbedded(ctx context.Context) (int, error)
}
