package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/chunking"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driving"
	"github.com/fiscalia-labs/fiscalia-core/internal/runtime"
)

// Ensure RAGOrchestrator implements RAGService
var _ driving.RAGService = (*RAGOrchestrator)(nil)

// systemPrompt is the fixed instruction set for the answering model.
const systemPrompt = `Você é um assistente especializado em documentos fiscais brasileiros ` +
	`(NFe, NFCe, CTe, MDFe). Responda com base apenas no contexto fornecido. ` +
	`Quando o contexto não contiver a resposta, diga isso claramente. ` +
	`Valores monetários devem ser apresentados em reais (R$).`

// User-facing failure classes. Callers render these directly instead of
// interpreting internal errors.
const (
	msgNoDocuments = "Ainda não há documentos indexados. Envie documentos fiscais para começar a fazer perguntas."
	msgNoMatches   = "Há documentos indexados, mas nenhum é relevante para essa pergunta. Tente reformular."
	msgError       = "Ocorreu um erro ao processar sua pergunta. Tente novamente em instantes."
)

const (
	defaultChunkSize     = 1000
	defaultChunkOverlap  = 200
	defaultCallTimeout   = 30 * time.Second
	defaultHistoryWindow = 10
	processingLockTTL    = 5 * time.Minute
)

// RAGOrchestrator ties chunking, embedding, vector search, reranking,
// caching and chat completion together. It implements the two pipelines:
// document indexing and query answering.
type RAGOrchestrator struct {
	documentStore driven.DocumentStore
	vectorStore   driven.VectorStore
	sessionStore  driven.SessionStore
	responseCache driven.ResponseCache
	lock          driven.DistributedLock
	services      *runtime.Services
	intents       *IntentRouter
	logger        *slog.Logger

	chunkSize     int
	chunkOverlap  int
	callTimeout   time.Duration
	historyWindow int
}

// RAGConfig holds dependencies for the orchestrator.
// ResponseCache, Lock and Intents are optional.
type RAGConfig struct {
	DocumentStore driven.DocumentStore
	VectorStore   driven.VectorStore
	SessionStore  driven.SessionStore
	ResponseCache driven.ResponseCache
	Lock          driven.DistributedLock
	Services      *runtime.Services
	Intents       *IntentRouter
	Logger        *slog.Logger

	ChunkSize     int
	ChunkOverlap  int
	CallTimeout   time.Duration
	HistoryWindow int
}

// NewRAGOrchestrator creates the orchestrator with defaults applied.
func NewRAGOrchestrator(cfg RAGConfig) *RAGOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = defaultChunkOverlap
		if cfg.ChunkOverlap >= cfg.ChunkSize {
			cfg.ChunkOverlap = cfg.ChunkSize / 5
		}
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}

	return &RAGOrchestrator{
		documentStore: cfg.DocumentStore,
		vectorStore:   cfg.VectorStore,
		sessionStore:  cfg.SessionStore,
		responseCache: cfg.ResponseCache,
		lock:          cfg.Lock,
		services:      cfg.Services,
		intents:       cfg.Intents,
		logger:        logger,
		chunkSize:     cfg.ChunkSize,
		chunkOverlap:  cfg.ChunkOverlap,
		callTimeout:   cfg.CallTimeout,
		historyWindow: cfg.HistoryWindow,
	}
}

// ProcessDocument runs the indexing pipeline for one document:
// chunk → embed → replace stored chunks → mark completed.
//
// Failures are reported in the result, never raised: the document is
// left in failed status and the worker decides whether to retry.
func (o *RAGOrchestrator) ProcessDocument(ctx context.Context, documentID string) (*domain.ProcessResult, error) {
	start := time.Now()
	logger := o.logger.With("document_id", documentID)

	doc, err := o.documentStore.Get(ctx, documentID)
	if err != nil {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("get document: %w", err)), nil
	}

	if o.lock != nil {
		acquired, lockErr := o.lock.Acquire(ctx, "process:"+documentID, processingLockTTL)
		if lockErr != nil {
			logger.Warn("lock backend unavailable, proceeding without lock", "error", lockErr)
		} else if !acquired {
			return &domain.ProcessResult{
				DocumentID: documentID,
				Success:    false,
				Error:      domain.ErrProcessingInProgress.Error(),
				Duration:   time.Since(start),
			}, nil
		} else {
			defer func() { _ = o.lock.Release(context.WithoutCancel(ctx), "process:"+documentID) }()
		}
	}

	if _, err := o.vectorStore.UpdateEmbeddingStatus(ctx, documentID, domain.EmbeddingStatusProcessing); err != nil {
		logger.Warn("failed to mark document processing", "error", err)
	}

	embedSvc := o.services.EmbeddingService()
	if embedSvc == nil {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("no embedding service configured")), nil
	}

	pieces, err := chunking.Split(doc.Text(), o.chunkSize, o.chunkOverlap)
	if err != nil {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("split text: %w", err)), nil
	}
	if len(pieces) == 0 {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("document has no indexable text")), nil
	}

	chunks, err := o.embedPieces(ctx, doc, pieces, embedSvc)
	if err != nil {
		if _, ok := domain.IsRateLimit(err); ok {
			// Budget exhaustion is not a document failure. Reset to
			// pending and surface the error so the job is rescheduled.
			if _, stErr := o.vectorStore.UpdateEmbeddingStatus(ctx, documentID, domain.EmbeddingStatusPending); stErr != nil {
				logger.Warn("failed to reset document status", "error", stErr)
			}
			return nil, err
		}
		return o.failProcessing(ctx, documentID, start, err), nil
	}
	if len(chunks) == 0 {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("no chunks yielded embeddings")), nil
	}

	// Reprocessing replaces the previous chunk set wholesale.
	if err := o.vectorStore.DeleteByDocument(ctx, documentID); err != nil {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("clear previous chunks: %w", err)), nil
	}

	saved, err := o.vectorStore.SaveChunks(ctx, chunks)
	if err != nil {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("save chunks: %w", err)), nil
	}
	if len(saved) == 0 {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("no chunks were stored")), nil
	}

	// Completed only after the chunk insert has returned successfully.
	if _, err := o.vectorStore.UpdateEmbeddingStatus(ctx, documentID, domain.EmbeddingStatusCompleted); err != nil {
		return o.failProcessing(ctx, documentID, start, fmt.Errorf("mark completed: %w", err)), nil
	}

	o.recordHistory(ctx, documentID, "embedding_completed",
		fmt.Sprintf("%d of %d chunks stored", len(saved), len(pieces)))

	logger.Info("document indexed",
		"chunks", len(saved),
		"pieces", len(pieces),
		"duration", time.Since(start),
	)

	return &domain.ProcessResult{
		DocumentID:  documentID,
		Success:     true,
		ChunksSaved: len(saved),
		Duration:    time.Since(start),
	}, nil
}

// embedPieces embeds the whole batch in one provider call, falling back
// to per-piece calls so a single poison chunk does not sink the batch.
// Rate-limit exhaustion aborts immediately so the job queue can requeue
// with backoff instead of hammering the provider.
func (o *RAGOrchestrator) embedPieces(ctx context.Context, doc *domain.Document, pieces []chunking.Piece, embedSvc driven.EmbeddingService) ([]*domain.Chunk, error) {
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}

	dims := embedSvc.Dimensions()
	meta := domain.ChunkMetadata{
		DocumentType: doc.DocumentType,
		IssuerID:     doc.IssuerID,
		ChunkSize:    o.chunkSize,
		TotalChunks:  len(pieces),
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	embeddings, err := embedSvc.Embed(callCtx, texts)
	cancel()

	if err != nil {
		if _, ok := domain.IsRateLimit(err); ok {
			return nil, err
		}
		o.logger.Warn("batch embedding failed, retrying per chunk",
			"document_id", doc.ID, "error", err)
		embeddings, err = o.embedIndividually(ctx, texts, embedSvc)
		if err != nil {
			return nil, err
		}
	}

	var chunks []*domain.Chunk
	for i, piece := range pieces {
		if i >= len(embeddings) || len(embeddings[i]) == 0 {
			continue
		}
		chunk := &domain.Chunk{
			ID:             domain.GenerateID(),
			DocumentID:     doc.ID,
			SequenceNumber: piece.Index,
			Text:           piece.Text,
			Embedding:      embeddings[i],
			Metadata:       meta,
			CreatedAt:      time.Now(),
		}
		if !chunk.Usable(dims) {
			o.logger.Warn("skipping chunk with mismatched embedding",
				"document_id", doc.ID,
				"chunk_number", piece.Index,
				"got_dimensions", len(chunk.Embedding),
				"want_dimensions", dims,
			)
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// embedIndividually is the degraded path: one call per text, failures
// leave a nil slot that the caller skips. Rate-limit exhaustion aborts
// the walk so the remaining chunks are not burned against the budget.
func (o *RAGOrchestrator) embedIndividually(ctx context.Context, texts []string, embedSvc driven.EmbeddingService) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		vec, err := embedSvc.EmbedQuery(callCtx, text)
		cancel()
		if err != nil {
			if _, ok := domain.IsRateLimit(err); ok {
				return nil, err
			}
			o.logger.Warn("chunk embedding failed, skipping", "chunk_number", i, "error", err)
			continue
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// failProcessing marks the document failed, records history and builds
// the failure result. Processing errors never propagate as Go errors.
func (o *RAGOrchestrator) failProcessing(ctx context.Context, documentID string, start time.Time, cause error) *domain.ProcessResult {
	o.logger.Error("document processing failed", "document_id", documentID, "error", cause)

	if _, err := o.vectorStore.UpdateEmbeddingStatus(ctx, documentID, domain.EmbeddingStatusFailed); err != nil {
		o.logger.Warn("failed to mark document failed", "document_id", documentID, "error", err)
	}
	o.recordHistory(ctx, documentID, "embedding_failed", cause.Error())

	return &domain.ProcessResult{
		DocumentID: documentID,
		Success:    false,
		Error:      cause.Error(),
		Duration:   time.Since(start),
	}
}

// AnswerQuery answers one question inside a chat session.
// Best-effort read failures surface as answer kinds, never as errors.
func (o *RAGOrchestrator) AnswerQuery(ctx context.Context, sessionID, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	start := time.Now()
	opts = opts.WithDefaults()

	if query == "" {
		return nil, domain.ErrInvalidInput
	}

	o.recordMessage(ctx, sessionID, domain.MessageRoleUser, query)

	// Structured intents bypass vector search entirely: for a small
	// corpus, direct queries are cheaper and more accurate.
	if o.intents != nil {
		if answer, handled := o.intents.Handle(ctx, query); handled {
			answer.SessionID = sessionID
			answer.Took = time.Since(start)
			o.recordMessage(ctx, sessionID, domain.MessageRoleAssistant, answer.Text)
			return answer, nil
		}
	}

	embedSvc := o.services.EmbeddingService()
	chatSvc := o.services.ChatService()
	if embedSvc == nil || chatSvc == nil {
		return o.errorAnswer(sessionID, start, "ai services not configured"), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	queryVector, err := embedSvc.EmbedQuery(callCtx, query)
	cancel()
	if err != nil {
		o.logger.Error("query embedding failed", "error", err)
		return o.errorAnswer(sessionID, start, err.Error()), nil
	}

	hits, err := o.vectorStore.SearchSimilar(ctx, queryVector, driven.SearchOptions{
		Threshold:  opts.Threshold,
		MaxResults: opts.MaxResults,
		Filters:    opts.Filters,
	})
	if err != nil {
		// Search degrades to "nothing found"; the distinction below
		// still tells the user whether anything is indexed at all.
		o.logger.Warn("similarity search failed", "error", err)
		hits = nil
	}

	if len(hits) == 0 {
		return o.emptyCorpusAnswer(ctx, sessionID, start), nil
	}

	if reranker := o.services.Reranker(); reranker != nil {
		reranked, rerankErr := reranker.Rerank(ctx, query, hits)
		if rerankErr != nil {
			o.logger.Warn("rerank failed, keeping similarity order", "error", rerankErr)
		} else {
			hits = reranked
		}
	}

	contexts := domain.GroupByDocument(hits, opts.MaxContextDocs, opts.MaxChunksPerDoc)
	o.attachDocuments(ctx, contexts)

	contextMap := make(map[string]string, len(contexts))
	for _, dc := range contexts {
		contextMap[dc.DocumentID] = dc.Text
	}

	if o.responseCache != nil && !opts.SkipCache {
		entry, cacheErr := o.responseCache.Get(ctx, sessionID, query, contextMap)
		if cacheErr != nil {
			o.logger.Warn("cache lookup failed", "error", cacheErr)
		} else if entry != nil {
			answer := &domain.Answer{
				Kind:      domain.AnswerKindAnswered,
				Text:      entry.ResponseText,
				Cached:    true,
				SessionID: sessionID,
				Sources:   contexts,
				Metadata:  entry.Metadata,
				Took:      time.Since(start),
			}
			o.recordMessage(ctx, sessionID, domain.MessageRoleAssistant, answer.Text)
			return answer, nil
		}
	}

	conversation := o.loadConversation(ctx, sessionID)
	userPrompt := buildUserPrompt(contexts, query)

	callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
	text, err := chatSvc.Complete(callCtx, systemPrompt, conversation, userPrompt)
	cancel()
	if err != nil {
		o.logger.Error("chat completion failed", "error", err)
		return o.errorAnswer(sessionID, start, err.Error()), nil
	}

	metadata := map[string]string{
		"model":        chatSvc.Model(),
		"context_docs": fmt.Sprintf("%d", len(contexts)),
	}

	if o.responseCache != nil && !opts.SkipCache {
		if cacheErr := o.responseCache.Put(ctx, sessionID, query, contextMap, text, metadata, domain.DefaultCacheTTL); cacheErr != nil {
			o.logger.Warn("cache write failed", "error", cacheErr)
		}
	}

	o.recordMessage(ctx, sessionID, domain.MessageRoleAssistant, text)

	return &domain.Answer{
		Kind:      domain.AnswerKindAnswered,
		Text:      text,
		SessionID: sessionID,
		Sources:   contexts,
		Metadata:  metadata,
		Took:      time.Since(start),
	}, nil
}

// emptyCorpusAnswer distinguishes "nothing indexed yet" from "indexed
// but nothing relevant".
func (o *RAGOrchestrator) emptyCorpusAnswer(ctx context.Context, sessionID string, start time.Time) *domain.Answer {
	kind := domain.AnswerKindNoMatches
	text := msgNoMatches

	embedded, err := o.vectorStore.CountEmbedded(ctx)
	if err != nil {
		o.logger.Warn("failed to count embedded chunks", "error", err)
	}
	if err == nil && embedded == 0 {
		kind = domain.AnswerKindNoDocuments
		text = msgNoDocuments
	}

	o.recordMessage(ctx, sessionID, domain.MessageRoleAssistant, text)
	return &domain.Answer{
		Kind:      kind,
		Text:      text,
		SessionID: sessionID,
		Took:      time.Since(start),
	}
}

func (o *RAGOrchestrator) errorAnswer(sessionID string, start time.Time, detail string) *domain.Answer {
	return &domain.Answer{
		Kind:      domain.AnswerKindError,
		Text:      msgError,
		SessionID: sessionID,
		Metadata:  map[string]string{"error": detail},
		Took:      time.Since(start),
	}
}

// loadConversation returns the session's recent messages, with older
// history folded into a summary when it overflows the window.
func (o *RAGOrchestrator) loadConversation(ctx context.Context, sessionID string) []domain.ChatMessage {
	if o.sessionStore == nil || sessionID == "" {
		return nil
	}

	messages, err := o.sessionStore.GetMessages(ctx, sessionID, o.historyWindow)
	if err != nil {
		o.logger.Warn("failed to load chat history", "session_id", sessionID, "error", err)
		return nil
	}

	var conversation []domain.ChatMessage

	session, err := o.sessionStore.GetSession(ctx, sessionID)
	if err == nil {
		total, countErr := o.sessionStore.CountMessages(ctx, sessionID)
		if countErr == nil && total > o.historyWindow {
			summary := o.refreshSummary(ctx, session, messages, total)
			if summary != "" {
				conversation = append(conversation, domain.ChatMessage{
					Role:    domain.MessageRoleAssistant,
					Content: "Resumo da conversa anterior: " + summary,
				})
			}
		}
	}

	for _, m := range messages {
		conversation = append(conversation, *m)
	}
	return conversation
}

// refreshSummary asks the chat provider to condense overflowed history.
// Summarisation is best-effort; the stale summary is reused on failure.
func (o *RAGOrchestrator) refreshSummary(ctx context.Context, session *domain.ChatSession, recent []*domain.ChatMessage, total int) string {
	chatSvc := o.services.ChatService()
	if chatSvc == nil {
		return session.Summary
	}

	var transcript string
	if session.Summary != "" {
		transcript = "Resumo anterior: " + session.Summary + "\n"
	}
	for _, m := range recent {
		transcript += string(m.Role) + ": " + m.Content + "\n"
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	summary, err := chatSvc.Summarise(callCtx, transcript, 500)
	cancel()
	if err != nil {
		o.logger.Warn("history summarisation failed", "session_id", session.ID, "error", err)
		return session.Summary
	}

	session.Summary = summary
	session.UpdatedAt = time.Now()
	if err := o.sessionStore.SaveSession(ctx, session); err != nil {
		o.logger.Warn("failed to persist session summary", "session_id", session.ID, "error", err)
	}
	return summary
}

// attachDocuments enriches contexts with document records for callers
// that render sources. Lookup failures leave the context bare.
func (o *RAGOrchestrator) attachDocuments(ctx context.Context, contexts []*domain.DocumentContext) {
	for _, dc := range contexts {
		if dc.Document != nil {
			continue
		}
		doc, err := o.documentStore.Get(ctx, dc.DocumentID)
		if err != nil {
			continue
		}
		dc.Document = doc
	}
}

func (o *RAGOrchestrator) recordMessage(ctx context.Context, sessionID string, role domain.MessageRole, content string) {
	if o.sessionStore == nil || sessionID == "" {
		return
	}
	msg := domain.NewChatMessage(sessionID, role, content)
	if err := o.sessionStore.AppendMessage(ctx, msg); err != nil {
		o.logger.Warn("failed to record chat message", "session_id", sessionID, "error", err)
	}
}

func (o *RAGOrchestrator) recordHistory(ctx context.Context, documentID, action, detail string) {
	event := &domain.HistoryEvent{
		ID:         domain.GenerateID(),
		DocumentID: documentID,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
	if err := o.documentStore.SaveHistoryEvent(ctx, event); err != nil {
		o.logger.Warn("failed to record history event", "document_id", documentID, "error", err)
	}
}

// buildUserPrompt assembles the retrieved context and the question into
// the final user turn.
func buildUserPrompt(contexts []*domain.DocumentContext, query string) string {
	prompt := "Contexto dos documentos fiscais:\n\n"
	for i, dc := range contexts {
		label := dc.DocumentID
		if dc.Document != nil && dc.Document.FileName != "" {
			label = dc.Document.FileName
		}
		prompt += fmt.Sprintf("--- Documento %d (%s) ---\n%s\n\n", i+1, label, dc.Text)
	}
	prompt += "Pergunta: " + query
	return prompt
}
