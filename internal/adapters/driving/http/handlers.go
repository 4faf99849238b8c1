package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns readiness, checking database and cache connections
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// TokenRequest carries the service credential
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// handleIssueToken godoc
// @Summary      Issue bearer token
// @Description  Exchange the service credential for a JWT bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      TokenRequest  true  "Service credential"
// @Success      200      {object}  domain.TokenGrant
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/token [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grant, err := s.authService.IssueToken(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "client_id and client_secret are required")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

// Document endpoints

// IngestRequest is the payload for document ingestion
type IngestRequest struct {
	ID              string            `json:"id,omitempty"`
	FileName        string            `json:"file_name"`
	DocumentType    string            `json:"document_type"`
	IssuerID        string            `json:"issuer_id"`
	RecipientID     string            `json:"recipient_id"`
	IssueDate       *time.Time        `json:"issue_date,omitempty"`
	TotalValue      float64           `json:"total_value"`
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
	RawText         string            `json:"raw_text"`
}

// IngestResponse pairs the stored document with its embedding job
type IngestResponse struct {
	Document *domain.Document     `json:"document"`
	Job      *domain.EmbeddingJob `json:"job"`
}

// handleIngestDocument godoc
// @Summary      Ingest document
// @Description  Persists an extracted fiscal document and enqueues it for embedding
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      IngestRequest  true  "Extracted document"
// @Success      201      {object}  IngestResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      409      {object}  ErrorResponse  "Document already exists"
// @Router       /documents [post]
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc := &domain.Document{
		ID:              req.ID,
		FileName:        req.FileName,
		DocumentType:    domain.ParseDocumentType(req.DocumentType),
		IssuerID:        req.IssuerID,
		RecipientID:     req.RecipientID,
		IssueDate:       req.IssueDate,
		TotalValue:      req.TotalValue,
		ExtractedFields: req.ExtractedFields,
		RawText:         req.RawText,
	}

	job, err := s.documentService.Ingest(r.Context(), doc)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "file_name is required")
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "document already exists")
		default:
			writeError(w, http.StatusInternalServerError, "failed to ingest document")
		}
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{Document: doc, Job: job})
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  Paginated document listing with optional type, issuer and status filters
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int     false  "Page number (1-based)"
// @Param        page_size  query     int     false  "Page size (max 100)"
// @Param        type       query     string  false  "Document type (nfe, nfce, cte, mdfe)"
// @Param        issuer_id  query     string  false  "Issuer CNPJ"
// @Param        status     query     string  false  "Embedding status"
// @Success      200        {object}  domain.DocumentPage
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	filter := domain.DocumentFilter{
		IssuerID: q.Get("issuer_id"),
		Status:   domain.EmbeddingStatus(q.Get("status")),
	}
	if t := q.Get("type"); t != "" {
		filter.DocumentType = domain.ParseDocumentType(t)
	}

	result, err := s.documentService.List(r.Context(), page, pageSize, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetDocument godoc
// @Summary      Get document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documentService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Removes a document and all of its chunks
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documentService.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleReprocessDocument godoc
// @Summary      Reprocess document
// @Description  Requeues a document for re-indexing with elevated priority
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  domain.EmbeddingJob
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Already being processed"
// @Router       /documents/{id}/reprocess [post]
func (s *Server) handleReprocessDocument(w http.ResponseWriter, r *http.Request) {
	job, err := s.documentService.Reprocess(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, domain.ErrProcessingInProgress):
			writeError(w, http.StatusConflict, "document is already being processed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to reprocess document")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// handleDocumentHistory godoc
// @Summary      Document history
// @Description  Returns the audit trail for a document, newest first
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Document ID"
// @Param        limit  query     int     false  "Maximum events (default 50)"
// @Success      200    {array}   domain.HistoryEvent
// @Failure      404    {object}  ErrorResponse
// @Router       /documents/{id}/history [get]
func (s *Server) handleDocumentHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := s.documentService.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// Session endpoints

// CreateSessionRequest is the payload for session creation
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// handleCreateSession godoc
// @Summary      Create chat session
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateSessionRequest  false  "Session title"
// @Success      201      {object}  domain.ChatSession
// @Router       /sessions [post]
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.sessionService.Create(r.Context(), req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// handleListSessions godoc
// @Summary      List chat sessions
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Maximum sessions (default 20)"
// @Param        offset  query     int  false  "Offset for pagination"
// @Success      200     {array}   domain.ChatSession
// @Router       /sessions [get]
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	sessions, err := s.sessionService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// handleGetSession godoc
// @Summary      Get chat session
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.ChatSession
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id} [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// handleDeleteSession godoc
// @Summary      Delete chat session
// @Description  Removes a session, its messages and its cached answers
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id} [delete]
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessionService.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleSessionMessages godoc
// @Summary      Session messages
// @Description  Returns the most recent messages in chronological order
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Session ID"
// @Param        limit  query     int     false  "Maximum messages (default 50)"
// @Success      200    {array}   domain.ChatMessage
// @Failure      404    {object}  ErrorResponse
// @Router       /sessions/{id}/messages [get]
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := s.sessionService.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// AskRequest is the payload for a RAG query
type AskRequest struct {
	Query     string  `json:"query"`
	Threshold float32 `json:"threshold,omitempty"`
	MaxDocs   int     `json:"max_docs,omitempty"`
	SkipCache bool    `json:"skip_cache,omitempty"`

	// Optional corpus filters
	DocumentType string `json:"document_type,omitempty"`
	IssuerID     string `json:"issuer_id,omitempty"`
}

// handleAsk godoc
// @Summary      Ask a question
// @Description  Answers a question over the indexed corpus within a chat session.
// @Description  Retrieval or provider failures surface as answer kinds, not HTTP errors.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string      true  "Session ID"
// @Param        request  body      AskRequest  true  "Question"
// @Success      200      {object}  domain.Answer
// @Failure      400      {object}  ErrorResponse  "Empty query"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Router       /sessions/{id}/ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := domain.QueryOptions{
		Threshold:      req.Threshold,
		MaxContextDocs: req.MaxDocs,
		SkipCache:      req.SkipCache,
		Filters: domain.DocumentFilter{
			IssuerID: req.IssuerID,
		},
	}
	if req.DocumentType != "" {
		opts.Filters.DocumentType = domain.ParseDocumentType(req.DocumentType)
	}

	answer, err := s.ragService.AnswerQuery(r.Context(), r.PathValue("id"), req.Query, opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "query must not be empty")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to answer query")
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// Job endpoints

// handleListJobs godoc
// @Summary      List embedding jobs
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        document_id  query     string  false  "Filter by document"
// @Param        status       query     string  false  "Filter by status"
// @Param        limit        query     int     false  "Maximum jobs"
// @Success      200          {array}   domain.EmbeddingJob
// @Router       /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := domain.JobFilter{
		DocumentID: q.Get("document_id"),
		Status:     domain.JobStatus(q.Get("status")),
		Limit:      limit,
	}

	jobs, err := s.jobQueue.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// handleJobStats godoc
// @Summary      Queue statistics
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.QueueStats
// @Router       /jobs/stats [get]
func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.jobQueue.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
