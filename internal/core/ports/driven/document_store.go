package driven

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// DocumentStore handles fiscal document persistence (PostgreSQL).
// Save failures must propagate to the caller; silent data loss is not
// acceptable on the write path.
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents with pagination and optional filters
	List(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error)

	// Delete removes a document and, by cascade, its chunks
	Delete(ctx context.Context, id string) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)

	// CountByStatus returns the number of documents in the given embedding status
	CountByStatus(ctx context.Context, status domain.EmbeddingStatus) (int, error)

	// SaveHistoryEvent appends an audit event for a document
	SaveHistoryEvent(ctx context.Context, event *domain.HistoryEvent) error

	// GetHistory retrieves the audit trail for a document, newest first
	GetHistory(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEvent, error)
}
