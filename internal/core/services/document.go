package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driving"
)

// Ensure DocumentManager implements DocumentService
var _ driving.DocumentService = (*DocumentManager)(nil)

const reprocessPriority = 5

// DocumentManager handles document lifecycle: ingestion, requeueing,
// lookup and removal. Indexing itself happens in the worker.
type DocumentManager struct {
	documentStore driven.DocumentStore
	vectorStore   driven.VectorStore
	jobQueue      driven.JobQueue
	logger        *slog.Logger
}

func NewDocumentManager(documentStore driven.DocumentStore, vectorStore driven.VectorStore, jobQueue driven.JobQueue, logger *slog.Logger) *DocumentManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentManager{
		documentStore: documentStore,
		vectorStore:   vectorStore,
		jobQueue:      jobQueue,
		logger:        logger,
	}
}

// Ingest persists the document and enqueues its embedding job. The
// document lands in pending status so the UI can show progress before
// a worker picks it up.
func (m *DocumentManager) Ingest(ctx context.Context, doc *domain.Document) (*domain.EmbeddingJob, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if doc.ID == "" {
		doc.ID = domain.GenerateID()
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.EmbeddingStatus = domain.EmbeddingStatusPending

	if err := m.documentStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	job := domain.NewEmbeddingJob(doc.ID, 0, 0)
	if err := m.jobQueue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue embedding job: %w", err)
	}

	m.recordHistory(ctx, doc.ID, "ingested", doc.FileName)
	m.logger.Info("document ingested",
		"document_id", doc.ID,
		"file_name", doc.FileName,
		"document_type", doc.DocumentType,
		"job_id", job.ID,
	)
	return job, nil
}

// Reprocess requeues an existing document at elevated priority so
// manual retries jump ahead of bulk imports.
func (m *DocumentManager) Reprocess(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
	doc, err := m.documentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.EmbeddingStatus == domain.EmbeddingStatusProcessing {
		return nil, domain.ErrProcessingInProgress
	}

	if _, err := m.vectorStore.UpdateEmbeddingStatus(ctx, id, domain.EmbeddingStatusPending); err != nil {
		return nil, fmt.Errorf("reset embedding status: %w", err)
	}

	job := domain.NewEmbeddingJob(id, reprocessPriority, 0)
	if err := m.jobQueue.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue embedding job: %w", err)
	}

	m.recordHistory(ctx, id, "reprocess_requested", "")
	m.logger.Info("document requeued", "document_id", id, "job_id", job.ID)
	return job, nil
}

func (m *DocumentManager) Get(ctx context.Context, id string) (*domain.Document, error) {
	return m.documentStore.Get(ctx, id)
}

func (m *DocumentManager) List(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return m.documentStore.List(ctx, page, pageSize, filter)
}

// Delete removes the document, its chunks and its record. Chunks go
// first so a failed delete never leaves orphaned vectors behind a
// missing document.
func (m *DocumentManager) Delete(ctx context.Context, id string) error {
	if _, err := m.documentStore.Get(ctx, id); err != nil {
		return err
	}
	if err := m.vectorStore.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := m.documentStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	m.logger.Info("document deleted", "document_id", id)
	return nil
}

func (m *DocumentManager) Count(ctx context.Context) (int, error) {
	return m.documentStore.Count(ctx)
}

func (m *DocumentManager) History(ctx context.Context, id string, limit int) ([]*domain.HistoryEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return m.documentStore.GetHistory(ctx, id, limit)
}

func (m *DocumentManager) recordHistory(ctx context.Context, documentID, action, detail string) {
	event := &domain.HistoryEvent{
		ID:         domain.GenerateID(),
		DocumentID: documentID,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
	if err := m.documentStore.SaveHistoryEvent(ctx, event); err != nil {
		m.logger.Warn("failed to record history event", "document_id", documentID, "error", err)
	}
}
