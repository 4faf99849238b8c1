package driving

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// DocumentService handles document ingestion and access.
type DocumentService interface {
	// Ingest persists a document and enqueues it for embedding.
	// Returns the enqueued job.
	Ingest(ctx context.Context, doc *domain.Document) (*domain.EmbeddingJob, error)

	// Reprocess requeues an already-ingested document for re-indexing
	Reprocess(ctx context.Context, id string) (*domain.EmbeddingJob, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents with pagination and optional filters
	List(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error)

	// Delete removes a document and its chunks
	Delete(ctx context.Context, id string) error

	// Count returns the total number of documents
	Count(ctx context.Context) (int, error)

	// History retrieves the audit trail for a document
	History(ctx context.Context, id string, limit int) ([]*domain.HistoryEvent, error)
}

// ChatSessionService manages conversations.
type ChatSessionService interface {
	// Create starts a new session
	Create(ctx context.Context, title string) (*domain.ChatSession, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*domain.ChatSession, error)

	// List retrieves sessions, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.ChatSession, error)

	// Delete removes a session, its messages and its cached answers
	Delete(ctx context.Context, id string) error

	// History returns the most recent messages in chronological order
	History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
}
