package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven/mocks"
)

func newDocumentManager() (*DocumentManager, *mocks.MockDocumentStore, *mocks.MockVectorStore, *mocks.MockJobQueue) {
	documentStore := mocks.NewMockDocumentStore()
	vectorStore := mocks.NewMockVectorStore()
	jobQueue := mocks.NewMockJobQueue()
	return NewDocumentManager(documentStore, vectorStore, jobQueue, nil), documentStore, vectorStore, jobQueue
}

func TestDocumentManager_Ingest(t *testing.T) {
	svc, documentStore, _, jobQueue := newDocumentManager()

	doc := &domain.Document{
		FileName:     "nfe-123.xml",
		DocumentType: domain.DocumentTypeNFe,
		RawText:      "Nota fiscal eletrônica número 123.",
	}
	job, err := svc.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == "" {
		t.Error("expected generated document ID")
	}
	if doc.EmbeddingStatus != domain.EmbeddingStatusPending {
		t.Errorf("expected pending status, got %s", doc.EmbeddingStatus)
	}
	if job.DocumentID != doc.ID {
		t.Errorf("job references %s, document is %s", job.DocumentID, doc.ID)
	}

	stored, err := documentStore.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("document not persisted: %v", err)
	}
	if stored.FileName != "nfe-123.xml" {
		t.Errorf("unexpected stored file name %s", stored.FileName)
	}

	queued, err := jobQueue.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job not enqueued: %v", err)
	}
	if queued.Status != domain.JobStatusPending {
		t.Errorf("expected pending job, got %s", queued.Status)
	}
}

func TestDocumentManager_Ingest_Invalid(t *testing.T) {
	svc, _, _, _ := newDocumentManager()

	if _, err := svc.Ingest(context.Background(), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("nil document: expected ErrInvalidInput, got %v", err)
	}

	_, err := svc.Ingest(context.Background(), &domain.Document{DocumentType: domain.DocumentTypeNFe})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing file name: expected ErrInvalidInput, got %v", err)
	}
}

func TestDocumentManager_Reprocess(t *testing.T) {
	svc, documentStore, vectorStore, jobQueue := newDocumentManager()

	doc := &domain.Document{
		ID: "doc-1", FileName: "a.xml",
		DocumentType:    domain.DocumentTypeNFe,
		RawText:         "texto",
		EmbeddingStatus: domain.EmbeddingStatusFailed,
	}
	_ = documentStore.Save(context.Background(), doc)

	job, err := svc.Reprocess(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Priority != reprocessPriority {
		t.Errorf("manual retries should be prioritized, got priority %d", job.Priority)
	}
	if vectorStore.Status("doc-1") != domain.EmbeddingStatusPending {
		t.Errorf("expected status reset to pending, got %s", vectorStore.Status("doc-1"))
	}

	jobs, _ := jobQueue.ListJobs(context.Background(), domain.JobFilter{DocumentID: "doc-1"})
	if len(jobs) != 1 {
		t.Errorf("expected 1 enqueued job, got %d", len(jobs))
	}
}

func TestDocumentManager_Reprocess_WhileProcessing(t *testing.T) {
	svc, documentStore, _, _ := newDocumentManager()

	_ = documentStore.Save(context.Background(), &domain.Document{
		ID: "doc-1", FileName: "a.xml",
		DocumentType:    domain.DocumentTypeNFe,
		EmbeddingStatus: domain.EmbeddingStatusProcessing,
	})

	if _, err := svc.Reprocess(context.Background(), "doc-1"); !errors.Is(err, domain.ErrProcessingInProgress) {
		t.Errorf("expected ErrProcessingInProgress, got %v", err)
	}
}

func TestDocumentManager_Reprocess_NotFound(t *testing.T) {
	svc, _, _, _ := newDocumentManager()
	if _, err := svc.Reprocess(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentManager_Delete(t *testing.T) {
	svc, documentStore, vectorStore, _ := newDocumentManager()

	_ = documentStore.Save(context.Background(), &domain.Document{
		ID: "doc-1", FileName: "a.xml", DocumentType: domain.DocumentTypeNFe,
	})
	_, _ = vectorStore.SaveChunks(context.Background(), []*domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", Text: "t", Embedding: []float32{1}},
	})

	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := documentStore.Get(context.Background(), "doc-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("document should be gone")
	}
	if vectorStore.ChunkCount("doc-1") != 0 {
		t.Error("chunks should be gone")
	}
}

func TestDocumentManager_Delete_NotFound(t *testing.T) {
	svc, _, _, _ := newDocumentManager()
	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentManager_List_Defaults(t *testing.T) {
	svc, documentStore, _, _ := newDocumentManager()
	for _, id := range []string{"a", "b", "c"} {
		_ = documentStore.Save(context.Background(), &domain.Document{
			ID: id, FileName: id + ".xml", DocumentType: domain.DocumentTypeNFe,
		})
	}

	page, err := svc.List(context.Background(), 0, -5, domain.DocumentFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Page != 1 || page.PageSize != 20 {
		t.Errorf("expected defaults page=1 size=20, got page=%d size=%d", page.Page, page.PageSize)
	}
	if page.TotalCount != 3 {
		t.Errorf("expected 3 documents, got %d", page.TotalCount)
	}
}
