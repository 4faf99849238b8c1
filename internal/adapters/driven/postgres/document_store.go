package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	fieldsJSON, err := json.Marshal(doc.ExtractedFields)
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}

	query := `
		INSERT INTO documents (id, file_name, document_type, issuer_id, recipient_id,
			issue_date, total_value, extracted_fields, raw_text, embedding_status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			document_type = EXCLUDED.document_type,
			issuer_id = EXCLUDED.issuer_id,
			recipient_id = EXCLUDED.recipient_id,
			issue_date = EXCLUDED.issue_date,
			total_value = EXCLUDED.total_value,
			extracted_fields = EXCLUDED.extracted_fields,
			raw_text = EXCLUDED.raw_text,
			embedding_status = EXCLUDED.embedding_status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		doc.ID,
		doc.FileName,
		doc.DocumentType,
		doc.IssuerID,
		doc.RecipientID,
		NullTime(doc.IssueDate),
		doc.TotalValue,
		fieldsJSON,
		doc.RawText,
		doc.EmbeddingStatus,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save document: %v", domain.ErrStorage, err)
	}
	return nil
}

const documentColumns = `id, file_name, document_type, issuer_id, recipient_id,
	issue_date, total_value, extracted_fields, raw_text, embedding_status,
	created_at, updated_at`

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", domain.ErrStorage, err)
	}
	return doc, nil
}

// List retrieves documents with pagination and optional filters
func (s *DocumentStore) List(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	where, args := filterClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: count documents: %v", domain.ErrStorage, err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		documentColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", domain.ErrStorage, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", domain.ErrStorage, err)
	}

	return &domain.DocumentPage{
		Documents:  docs,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

// Delete removes a document; chunks go with it by cascade
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", domain.ErrStorage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", domain.ErrStorage, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count documents: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// CountByStatus returns the number of documents in the given embedding status
func (s *DocumentStore) CountByStatus(ctx context.Context, status domain.EmbeddingStatus) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE embedding_status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count by status: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// SaveHistoryEvent appends an audit event for a document
func (s *DocumentStore) SaveHistoryEvent(ctx context.Context, event *domain.HistoryEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_history (id, document_id, action, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.DocumentID, event.Action, event.Detail, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: save history event: %v", domain.ErrStorage, err)
	}
	return nil
}

// GetHistory retrieves the audit trail for a document, newest first
func (s *DocumentStore) GetHistory(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, action, detail, created_at
		 FROM document_history WHERE document_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: get history: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var events []*domain.HistoryEvent
	for rows.Next() {
		event := &domain.HistoryEvent{}
		if err := rows.Scan(&event.ID, &event.DocumentID, &event.Action, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan history event: %v", domain.ErrStorage, err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	doc := &domain.Document{}
	var fieldsJSON []byte
	var issueDate sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.FileName,
		&doc.DocumentType,
		&doc.IssuerID,
		&doc.RecipientID,
		&issueDate,
		&doc.TotalValue,
		&fieldsJSON,
		&doc.RawText,
		&doc.EmbeddingStatus,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.IssueDate = TimePtr(issueDate)
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &doc.ExtractedFields); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// filterClause builds the WHERE clause for document filters
func filterClause(filter domain.DocumentFilter) (string, []any) {
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
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("embedding_status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
