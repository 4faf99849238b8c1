package driving

import (
	"context"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// RAGService answers questions over the indexed corpus and runs the
// per-document indexing pipeline.
type RAGService interface {
	// AnswerQuery answers a question within a chat session. Failures on
	// best-effort paths surface as answer kinds, never as errors.
	AnswerQuery(ctx context.Context, sessionID, query string, opts domain.QueryOptions) (*domain.Answer, error)

	// ProcessDocument chunks, embeds and indexes one document.
	// It returns a result rather than raising: Success=false carries the
	// failure message and the document is left in failed status.
	ProcessDocument(ctx context.Context, documentID string) (*domain.ProcessResult, error)
}
