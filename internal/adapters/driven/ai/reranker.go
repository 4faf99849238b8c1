package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Ensure HTTPReranker implements Reranker
var _ driven.Reranker = (*HTTPReranker)(nil)

// HTTPReranker scores candidates with a cross-encoder behind an HTTP
// rerank endpoint (text-embeddings-inference style: POST /rerank with
// a query and candidate texts, scores back by index).
type HTTPReranker struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPReranker creates a reranker talking to the given base URL
func NewHTTPReranker(baseURL, model string) (*HTTPReranker, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: reranker base URL is required", domain.ErrInvalidInput)
	}
	return &HTTPReranker{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type rerankRequest struct {
	Model string   `json:"model,omitempty"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Rerank scores each candidate against the query and returns the
// candidates in relevance order, best first. Candidate similarity is
// replaced by the cross-encoder score.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []*domain.RankedChunk) ([]*domain.RankedChunk, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Text
	}

	body, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API returned status %d", resp.StatusCode)
	}

	var results []rerankResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	ranked := make([]*domain.RankedChunk, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range", res.Index)
		}
		ranked = append(ranked, &domain.RankedChunk{
			Chunk:      candidates[res.Index].Chunk,
			Similarity: res.Score,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	return ranked, nil
}

// Ping verifies the scoring backend is reachable
func (r *HTTPReranker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", r.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the reranker
func (r *HTTPReranker) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
