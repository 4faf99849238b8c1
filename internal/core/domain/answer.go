package domain

import "time"

// AnswerKind classifies the user-visible outcome of a query so callers
// never interpret internal error taxonomies directly.
type AnswerKind string

const (
	// AnswerKindAnswered means the model produced an answer from retrieved context
	AnswerKindAnswered AnswerKind = "answered"

	// AnswerKindDirect means an intent handler answered from structured data
	AnswerKindDirect AnswerKind = "direct"

	// AnswerKindNoDocuments means nothing has been indexed yet
	AnswerKindNoDocuments AnswerKind = "no_documents"

	// AnswerKindNoMatches means documents exist but none were relevant
	AnswerKindNoMatches AnswerKind = "no_matches"

	// AnswerKindError means processing failed and the user should retry
	AnswerKindError AnswerKind = "error"
)

// Answer is the result of a chat query.
type Answer struct {
	Kind      AnswerKind         `json:"kind"`
	Text      string             `json:"text"`
	Cached    bool               `json:"cached"`
	SessionID string             `json:"session_id"`
	Sources   []*DocumentContext `json:"sources,omitempty"`
	Metadata  map[string]string  `json:"metadata,omitempty"`
	Took      time.Duration      `json:"took"`
}

// QueryOptions tune retrieval for one query.
type QueryOptions struct {
	// Threshold is the minimum cosine similarity to keep a chunk
	Threshold float32

	// MaxResults caps the similarity search candidate set
	MaxResults int

	// MaxContextDocs caps documents included in the prompt
	MaxContextDocs int

	// MaxChunksPerDoc caps chunks kept per document
	MaxChunksPerDoc int

	// Filters narrows the searched corpus
	Filters DocumentFilter

	// SkipCache bypasses the response cache for this query
	SkipCache bool
}

// WithDefaults fills unset options with the service defaults.
func (o QueryOptions) WithDefaults() QueryOptions {
	if o.Threshold <= 0 {
		o.Threshold = 0.3
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 20
	}
	if o.MaxContextDocs <= 0 {
		o.MaxContextDocs = 5
	}
	if o.MaxChunksPerDoc <= 0 {
		o.MaxChunksPerDoc = 3
	}
	return o
}
