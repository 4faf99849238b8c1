package domain

import (
	"sort"
	"time"
)

// DocumentType identifies the fiscal document model a record was extracted from
type DocumentType string

const (
	DocumentTypeNFe     DocumentType = "nfe"
	DocumentTypeNFCe    DocumentType = "nfce"
	DocumentTypeCTe     DocumentType = "cte"
	DocumentTypeMDFe    DocumentType = "mdfe"
	DocumentTypeUnknown DocumentType = "unknown"
)

// ParseDocumentType maps free-form type strings to a DocumentType,
// falling back to unknown rather than failing.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocumentTypeNFe, DocumentTypeNFCe, DocumentTypeCTe, DocumentTypeMDFe:
		return DocumentType(s)
	default:
		return DocumentTypeUnknown
	}
}

// EmbeddingStatus tracks a document's progress through the indexing pipeline
type EmbeddingStatus string

const (
	EmbeddingStatusNotStarted EmbeddingStatus = "not_started"
	EmbeddingStatusPending    EmbeddingStatus = "pending"
	EmbeddingStatusProcessing EmbeddingStatus = "processing"
	EmbeddingStatusCompleted  EmbeddingStatus = "completed"
	EmbeddingStatusFailed     EmbeddingStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is a legal
// status transition. Failed documents may be requeued to pending.
func (s EmbeddingStatus) CanTransitionTo(next EmbeddingStatus) bool {
	switch s {
	case EmbeddingStatusNotStarted:
		return next == EmbeddingStatusPending
	case EmbeddingStatusPending:
		return next == EmbeddingStatusProcessing
	case EmbeddingStatusProcessing:
		return next == EmbeddingStatusCompleted || next == EmbeddingStatusFailed
	case EmbeddingStatusFailed:
		return next == EmbeddingStatusPending
	default:
		return false
	}
}

// Document represents one ingested fiscal record.
// Field extraction happens upstream; RawText arrives already extracted
// from the XML or OCR source.
type Document struct {
	ID              string            `json:"id"`
	FileName        string            `json:"file_name"`
	DocumentType    DocumentType      `json:"document_type"`
	IssuerID        string            `json:"issuer_id"`
	RecipientID     string            `json:"recipient_id"`
	IssueDate       *time.Time        `json:"issue_date,omitempty"`
	TotalValue      float64           `json:"total_value"`
	ExtractedFields map[string]string `json:"extracted_fields"`
	RawText         string            `json:"raw_text"`
	EmbeddingStatus EmbeddingStatus   `json:"embedding_status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks the invariants enforced at the store boundary.
func (d *Document) Validate() error {
	if d.ID == "" {
		return ErrInvalidInput
	}
	if d.FileName == "" {
		return ErrInvalidInput
	}
	if d.DocumentType == "" {
		d.DocumentType = DocumentTypeUnknown
	}
	if d.EmbeddingStatus == "" {
		d.EmbeddingStatus = EmbeddingStatusNotStarted
	}
	return nil
}

// Text returns the representation used for chunking and embedding.
// Raw text wins; extracted fields are appended in sorted key order so the
// representation is deterministic and structured values (totals, parties,
// dates) stay retrievable for scanned documents too.
func (d *Document) Text() string {
	text := d.RawText
	keys := make([]string, 0, len(d.ExtractedFields))
	for k := range d.ExtractedFields {
		if d.ExtractedFields[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		text += "\n" + k + ": " + d.ExtractedFields[k]
	}
	return text
}

// ChunkMetadata is the denormalised payload persisted next to each chunk
// so search filters never need a join back to the document row.
type ChunkMetadata struct {
	DocumentType DocumentType `json:"document_type"`
	IssuerID     string       `json:"issuer_id"`
	ChunkSize    int          `json:"chunk_size"`
	TotalChunks  int          `json:"total_chunks"`
}

// Chunk is a contiguous slice of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	ID             string        `json:"id"`
	DocumentID     string        `json:"document_id"`
	SequenceNumber int           `json:"chunk_number"` // reading order, unique per document
	Text           string        `json:"content_text"`
	Embedding      []float32     `json:"embedding,omitempty"`
	Metadata       ChunkMetadata `json:"metadata"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Usable reports whether the chunk can be stored and searched:
// it must carry an embedding of the declared dimensionality.
func (c *Chunk) Usable(dimensions int) bool {
	return len(c.Embedding) > 0 && len(c.Embedding) == dimensions
}

// RankedChunk pairs a chunk with its similarity to a query vector.
type RankedChunk struct {
	Chunk      *Chunk  `json:"chunk"`
	Similarity float32 `json:"similarity"`
}

// DocumentContext groups the best chunks of one document for prompt assembly.
type DocumentContext struct {
	Document   *Document      `json:"document,omitempty"`
	DocumentID string         `json:"document_id"`
	Chunks     []*RankedChunk `json:"chunks"`
	Score      float32        `json:"score"` // aggregate similarity across kept chunks
	Text       string         `json:"text"`  // chunk texts joined in reading order
}

// HistoryEvent records an ingestion or processing action against a document.
type HistoryEvent struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentFilter narrows document listings and similarity searches.
type DocumentFilter struct {
	DocumentType DocumentType
	IssuerID     string
	Status       EmbeddingStatus
}

// DocumentPage is one page of a paginated document listing.
type DocumentPage struct {
	Documents  []*Document `json:"documents"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int         `json:"total_count"`
}
