package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven/mocks"
)

// Mock services for testing

type mockAuthService struct {
	issueTokenFn    func(ctx context.Context, clientID, clientSecret string) (*domain.TokenGrant, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.TokenClaims, error)
}

func (m *mockAuthService) IssueToken(ctx context.Context, clientID, clientSecret string) (*domain.TokenGrant, error) {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, clientID, clientSecret)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	if token == "valid-token" {
		return &domain.TokenClaims{
			ClientID:  "fiscalia-app",
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		}, nil
	}
	return nil, domain.ErrTokenInvalid
}

type mockDocumentService struct {
	ingestFn    func(ctx context.Context, doc *domain.Document) (*domain.EmbeddingJob, error)
	reprocessFn func(ctx context.Context, id string) (*domain.EmbeddingJob, error)
	getFn       func(ctx context.Context, id string) (*domain.Document, error)
	listFn      func(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error)
	deleteFn    func(ctx context.Context, id string) error
	historyFn   func(ctx context.Context, id string, limit int) ([]*domain.HistoryEvent, error)
}

func (m *mockDocumentService) Ingest(ctx context.Context, doc *domain.Document) (*domain.EmbeddingJob, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, doc)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Reprocess(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
	if m.reprocessFn != nil {
		return m.reprocessFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) List(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, pageSize, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockDocumentService) Count(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockDocumentService) History(ctx context.Context, id string, limit int) ([]*domain.HistoryEvent, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, id, limit)
	}
	return nil, errors.New("not implemented")
}

type mockSessionService struct {
	createFn  func(ctx context.Context, title string) (*domain.ChatSession, error)
	getFn     func(ctx context.Context, id string) (*domain.ChatSession, error)
	listFn    func(ctx context.Context, limit, offset int) ([]*domain.ChatSession, error)
	deleteFn  func(ctx context.Context, id string) error
	historyFn func(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
}

func (m *mockSessionService) Create(ctx context.Context, title string) (*domain.ChatSession, error) {
	if m.createFn != nil {
		return m.createFn(ctx, title)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSessionService) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSessionService) List(ctx context.Context, limit, offset int) ([]*domain.ChatSession, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSessionService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockSessionService) History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, sessionID, limit)
	}
	return nil, errors.New("not implemented")
}

type mockRAGService struct {
	answerFn  func(ctx context.Context, sessionID, query string, opts domain.QueryOptions) (*domain.Answer, error)
	processFn func(ctx context.Context, documentID string) (*domain.ProcessResult, error)
}

func (m *mockRAGService) AnswerQuery(ctx context.Context, sessionID, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	if m.answerFn != nil {
		return m.answerFn(ctx, sessionID, query, opts)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRAGService) ProcessDocument(ctx context.Context, documentID string) (*domain.ProcessResult, error) {
	if m.processFn != nil {
		return m.processFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

// Test helpers

type testServer struct {
	server   *Server
	auth     *mockAuthService
	docs     *mockDocumentService
	sessions *mockSessionService
	rag      *mockRAGService
	queue    *mocks.MockJobQueue
}

func newTestServer() *testServer {
	ts := &testServer{
		auth:     &mockAuthService{},
		docs:     &mockDocumentService{},
		sessions: &mockSessionService{},
		rag:      &mockRAGService{},
		queue:    mocks.NewMockJobQueue(),
	}
	ts.server = NewServer(DefaultConfig(), nil, ts.auth, ts.docs, ts.sessions, ts.rag, ts.queue, nil, nil)
	return ts
}

func (ts *testServer) request(t *testing.T, method, path string, body interface{}, authorized bool) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &reqBody)
	if authorized {
		req.Header.Set("Authorization", "Bearer valid-token")
	}

	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

// Health

func TestHandleHealth(t *testing.T) {
	ts := newTestServer()

	w := ts.request(t, "GET", "/health", nil, false)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// Auth

func TestHandleIssueToken(t *testing.T) {
	ts := newTestServer()
	ts.auth.issueTokenFn = func(ctx context.Context, clientID, clientSecret string) (*domain.TokenGrant, error) {
		if clientID != "fiscalia-app" || clientSecret != "secret" {
			return nil, domain.ErrUnauthorized
		}
		return &domain.TokenGrant{Token: "jwt-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}

	w := ts.request(t, "POST", "/api/v1/auth/token",
		TokenRequest{ClientID: "fiscalia-app", ClientSecret: "secret"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	grant := decodeBody[domain.TokenGrant](t, w)
	if grant.Token != "jwt-token" {
		t.Errorf("expected token in response, got %q", grant.Token)
	}
}

func TestHandleIssueToken_BadCredentials(t *testing.T) {
	ts := newTestServer()
	ts.auth.issueTokenFn = func(ctx context.Context, clientID, clientSecret string) (*domain.TokenGrant, error) {
		return nil, domain.ErrUnauthorized
	}

	w := ts.request(t, "POST", "/api/v1/auth/token",
		TokenRequest{ClientID: "app", ClientSecret: "wrong"}, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer()

	w := ts.request(t, "GET", "/api/v1/documents", nil, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

// Documents

func TestHandleIngestDocument(t *testing.T) {
	ts := newTestServer()
	ts.docs.ingestFn = func(ctx context.Context, doc *domain.Document) (*domain.EmbeddingJob, error) {
		if doc.FileName != "nfe-1.xml" {
			t.Errorf("expected file name to pass through, got %q", doc.FileName)
		}
		if doc.DocumentType != domain.DocumentTypeNFe {
			t.Errorf("expected parsed document type, got %s", doc.DocumentType)
		}
		doc.ID = "doc-1"
		return domain.NewEmbeddingJob(doc.ID, 0, 3), nil
	}

	w := ts.request(t, "POST", "/api/v1/documents", IngestRequest{
		FileName:     "nfe-1.xml",
		DocumentType: "nfe",
		IssuerID:     "12345678000199",
		TotalValue:   150.50,
		RawText:      "NFe de teste.",
	}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody[IngestResponse](t, w)
	if resp.Document.ID != "doc-1" {
		t.Errorf("expected document ID in response")
	}
	if resp.Job == nil || resp.Job.DocumentID != "doc-1" {
		t.Errorf("expected job in response")
	}
}

func TestHandleIngestDocument_Invalid(t *testing.T) {
	ts := newTestServer()
	ts.docs.ingestFn = func(ctx context.Context, doc *domain.Document) (*domain.EmbeddingJob, error) {
		return nil, domain.ErrInvalidInput
	}

	w := ts.request(t, "POST", "/api/v1/documents", IngestRequest{}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	ts := newTestServer()
	ts.docs.listFn = func(ctx context.Context, page, pageSize int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
		if page != 2 || pageSize != 10 {
			t.Errorf("expected page=2 page_size=10, got %d/%d", page, pageSize)
		}
		if filter.DocumentType != domain.DocumentTypeCTe {
			t.Errorf("expected cte filter, got %s", filter.DocumentType)
		}
		return &domain.DocumentPage{
			Documents:  []*domain.Document{{ID: "doc-1", FileName: "cte-1.xml"}},
			Page:       page,
			PageSize:   pageSize,
			TotalCount: 11,
		}, nil
	}

	w := ts.request(t, "GET", "/api/v1/documents?page=2&page_size=10&type=cte", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	page := decodeBody[domain.DocumentPage](t, w)
	if page.TotalCount != 11 || len(page.Documents) != 1 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	ts := newTestServer()
	ts.docs.getFn = func(ctx context.Context, id string) (*domain.Document, error) {
		return nil, domain.ErrNotFound
	}

	w := ts.request(t, "GET", "/api/v1/documents/missing", nil, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleReprocessDocument(t *testing.T) {
	ts := newTestServer()
	ts.docs.reprocessFn = func(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
		return domain.NewEmbeddingJob(id, 5, 3), nil
	}

	w := ts.request(t, "POST", "/api/v1/documents/doc-1/reprocess", nil, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	job := decodeBody[domain.EmbeddingJob](t, w)
	if job.Priority != 5 {
		t.Errorf("expected elevated priority, got %d", job.Priority)
	}
}

func TestHandleReprocessDocument_InProgress(t *testing.T) {
	ts := newTestServer()
	ts.docs.reprocessFn = func(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
		return nil, domain.ErrProcessingInProgress
	}

	w := ts.request(t, "POST", "/api/v1/documents/doc-1/reprocess", nil, true)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	ts := newTestServer()
	deleted := ""
	ts.docs.deleteFn = func(ctx context.Context, id string) error {
		deleted = id
		return nil
	}

	w := ts.request(t, "DELETE", "/api/v1/documents/doc-1", nil, true)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if deleted != "doc-1" {
		t.Errorf("expected delete of doc-1, got %q", deleted)
	}
}

func TestHandleDocumentHistory(t *testing.T) {
	ts := newTestServer()
	ts.docs.historyFn = func(ctx context.Context, id string, limit int) ([]*domain.HistoryEvent, error) {
		return []*domain.HistoryEvent{
			{ID: "ev-1", DocumentID: id, Action: "ingested"},
		}, nil
	}

	w := ts.request(t, "GET", "/api/v1/documents/doc-1/history", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	events := decodeBody[[]*domain.HistoryEvent](t, w)
	if len(events) != 1 || events[0].Action != "ingested" {
		t.Errorf("unexpected events: %+v", events)
	}
}

// Sessions

func TestHandleCreateSession(t *testing.T) {
	ts := newTestServer()
	ts.sessions.createFn = func(ctx context.Context, title string) (*domain.ChatSession, error) {
		return domain.NewChatSession(title), nil
	}

	w := ts.request(t, "POST", "/api/v1/sessions", CreateSessionRequest{Title: "Notas de julho"}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	session := decodeBody[domain.ChatSession](t, w)
	if session.Title != "Notas de julho" {
		t.Errorf("expected title, got %q", session.Title)
	}
}

func TestHandleAsk(t *testing.T) {
	ts := newTestServer()
	ts.rag.answerFn = func(ctx context.Context, sessionID, query string, opts domain.QueryOptions) (*domain.Answer, error) {
		if sessionID != "sess-1" {
			t.Errorf("expected session from path, got %q", sessionID)
		}
		if !opts.SkipCache {
			t.Error("expected skip_cache to pass through")
		}
		return &domain.Answer{
			Kind:      domain.AnswerKindAnswered,
			Text:      "O total é R$ 150,50.",
			SessionID: sessionID,
		}, nil
	}

	w := ts.request(t, "POST", "/api/v1/sessions/sess-1/ask", AskRequest{
		Query:     "qual o total?",
		SkipCache: true,
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	answer := decodeBody[domain.Answer](t, w)
	if answer.Kind != domain.AnswerKindAnswered {
		t.Errorf("expected answered kind, got %s", answer.Kind)
	}
}

func TestHandleAsk_EmptyQuery(t *testing.T) {
	ts := newTestServer()
	ts.rag.answerFn = func(ctx context.Context, sessionID, query string, opts domain.QueryOptions) (*domain.Answer, error) {
		return nil, domain.ErrInvalidInput
	}

	w := ts.request(t, "POST", "/api/v1/sessions/sess-1/ask", AskRequest{Query: ""}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleDeleteSession_NotFound(t *testing.T) {
	ts := newTestServer()
	ts.sessions.deleteFn = func(ctx context.Context, id string) error {
		return domain.ErrNotFound
	}

	w := ts.request(t, "DELETE", "/api/v1/sessions/missing", nil, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleSessionMessages(t *testing.T) {
	ts := newTestServer()
	ts.sessions.historyFn = func(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
		return []*domain.ChatMessage{
			{ID: "msg-1", SessionID: sessionID, Role: domain.MessageRoleUser, Content: "oi"},
		}, nil
	}

	w := ts.request(t, "GET", "/api/v1/sessions/sess-1/messages", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	messages := decodeBody[[]*domain.ChatMessage](t, w)
	if len(messages) != 1 || messages[0].Content != "oi" {
		t.Errorf("unexpected messages: %+v", messages)
	}
}

// Jobs

func TestHandleListJobs(t *testing.T) {
	ts := newTestServer()
	job := domain.NewEmbeddingJob("doc-1", 0, 3)
	if err := ts.queue.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	w := ts.request(t, "GET", "/api/v1/jobs?document_id=doc-1", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	jobs := decodeBody[[]*domain.EmbeddingJob](t, w)
	if len(jobs) != 1 || jobs[0].DocumentID != "doc-1" {
		t.Errorf("unexpected jobs: %+v", jobs)
	}
}

func TestHandleJobStats(t *testing.T) {
	ts := newTestServer()
	if err := ts.queue.Enqueue(context.Background(), domain.NewEmbeddingJob("doc-1", 0, 3)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	w := ts.request(t, "GET", "/api/v1/jobs/stats", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	stats := decodeBody[domain.QueueStats](t, w)
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 pending job, got %d", stats.PendingCount)
	}
}
