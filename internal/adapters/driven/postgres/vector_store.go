package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lib/pq"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore implements driven.VectorStore using PostgreSQL.
//
// Embeddings are stored as REAL[] and similarity is computed in-process
// with a linear scan over the candidate set. That holds up for a
// personal corpus (thousands of chunks); the port exists so an
// ANN-indexed store can replace this one when the corpus outgrows it.
type VectorStore struct {
	db     *DB
	logger *slog.Logger
}

// NewVectorStore creates a new VectorStore
func NewVectorStore(db *DB, logger *slog.Logger) *VectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStore{db: db, logger: logger}
}

// SaveChunks persists a batch of chunks. Chunks without embeddings are
// skipped and logged; they never abort the batch.
func (s *VectorStore) SaveChunks(ctx context.Context, chunks []*domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO chunks (id, document_id, chunk_number, content_text, embedding,
			document_type, issuer_id, chunk_size, total_chunks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (document_id, chunk_number) DO UPDATE SET
			content_text = EXCLUDED.content_text,
			embedding = EXCLUDED.embedding,
			document_type = EXCLUDED.document_type,
			issuer_id = EXCLUDED.issuer_id,
			chunk_size = EXCLUDED.chunk_size,
			total_chunks = EXCLUDED.total_chunks
	`

	var saved []string
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			s.logger.Warn("skipping chunk without embedding",
				"chunk_id", chunk.ID, "document_id", chunk.DocumentID)
			continue
		}
		_, err := s.db.ExecContext(ctx, query,
			chunk.ID,
			chunk.DocumentID,
			chunk.SequenceNumber,
			chunk.Text,
			pq.Float32Array(chunk.Embedding),
			chunk.Metadata.DocumentType,
			chunk.Metadata.IssuerID,
			chunk.Metadata.ChunkSize,
			chunk.Metadata.TotalChunks,
			chunk.CreatedAt,
		)
		if err != nil {
			// Usually a missing parent document; skip and keep the batch going.
			s.logger.Warn("failed to save chunk, skipping",
				"chunk_id", chunk.ID, "document_id", chunk.DocumentID, "error", err)
			continue
		}
		saved = append(saved, chunk.ID)
	}
	return saved, nil
}

// SearchSimilar ranks stored chunks against the query vector.
func (s *VectorStore) SearchSimilar(ctx context.Context, queryVector []float32, opts driven.SearchOptions) ([]*domain.RankedChunk, error) {
	if len(queryVector) == 0 {
		return nil, domain.ErrInvalidInput
	}

	where, args := chunkFilterClause(opts.Filters)
	query := `SELECT id, document_id, chunk_number, content_text, embedding,
		document_type, issuer_id, chunk_size, total_chunks, created_at
		FROM chunks` + where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var ranked []*domain.RankedChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", domain.ErrStorage, err)
		}
		similarity := domain.CosineSimilarity(queryVector, chunk.Embedding)
		if similarity < opts.Threshold {
			continue
		}
		ranked = append(ranked, &domain.RankedChunk{Chunk: chunk, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", domain.ErrStorage, err)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if opts.MaxResults > 0 && len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}
	return ranked, nil
}

// GetDocumentContext groups the best chunks per document for prompt assembly.
// Failures degrade to an empty result.
func (s *VectorStore) GetDocumentContext(ctx context.Context, queryVector []float32, maxDocuments, maxChunksPerDocument int) ([]*domain.DocumentContext, error) {
	hits, err := s.SearchSimilar(ctx, queryVector, driven.SearchOptions{
		MaxResults: maxDocuments * maxChunksPerDocument * 4,
	})
	if err != nil {
		s.logger.Warn("document context search failed", "error", err)
		return nil, nil
	}
	return domain.GroupByDocument(hits, maxDocuments, maxChunksPerDocument), nil
}

// UpdateEmbeddingStatus performs a single-row conditional update.
// Returns false, not an error, when no row matched.
func (s *VectorStore) UpdateEmbeddingStatus(ctx context.Context, documentID string, status domain.EmbeddingStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET embedding_status = $1, updated_at = now() WHERE id = $2`,
		status, documentID)
	if err != nil {
		return false, fmt.Errorf("%w: update embedding status: %v", domain.ErrStorage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: update embedding status: %v", domain.ErrStorage, err)
	}
	return affected > 0, nil
}

// DeleteByDocument removes all chunks owned by a document
func (s *VectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("%w: delete chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

// CountEmbedded returns the number of stored chunks carrying an embedding
func (s *VectorStore) CountEmbedded(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE cardinality(embedding) > 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count embedded chunks: %v", domain.ErrStorage, err)
	}
	return count, nil
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	chunk := &domain.Chunk{}
	var embedding pq.Float32Array

	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.SequenceNumber,
		&chunk.Text,
		&embedding,
		&chunk.Metadata.DocumentType,
		&chunk.Metadata.IssuerID,
		&chunk.Metadata.ChunkSize,
		&chunk.Metadata.TotalChunks,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	chunk.Embedding = []float32(embedding)
	return chunk, nil
}

// chunkFilterClause builds the WHERE clause for chunk metadata filters
func chunkFilterClause(filter domain.DocumentFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if filter.IssuerID != "" {
		args = append(args, filter.IssuerID)
		conditions = append(conditions, fmt.Sprintf("issuer_id = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	where := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		where += " AND " + c
	}
	return where, args
}
