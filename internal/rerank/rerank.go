// Package rerank implements the cross-encoder reranker adapter (C10): an
// HTTP call to an external reranker model, with the narrow interface shape
// from other_examples/Kaikei-e-Alt/reranker.go and the graceful-degradation
// HTTP call pattern of the teacher's job_search_handler.go callReranker.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ratelimit"
)

// Candidate is one (resumeID, text) pair to score against a query.
type Candidate struct {
	ResumeID string
	Text     string
}

// Result is a candidate's cross-encoder relevance score, normalized 0..1.
type Result struct {
	ResumeID string
	Score    float64
}

// Reranker scores candidates against a query. The concrete cross-encoder
// model behind it is an external collaborator (spec §1 out-of-scope).
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error)
}

// HTTPReranker calls a reranker HTTP endpoint. On timeout or non-200 it
// returns an error rather than degrading silently — callers decide how to
// degrade (the classic path keeps RRF order, the agentic path ranks
// without the reranker's scores).
type HTTPReranker struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *ratelimit.TokenBucket
}

type Config struct {
	Endpoint  string
	APIKey    string
	TimeoutMS int
	QPM       int
}

func NewHTTPReranker(cfg Config) *HTTPReranker {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPReranker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  ratelimit.New(cfg.QPM),
	}
}

type rerankRequest struct {
	Query      string   `json:"query"`
	Documents  []string `json:"documents"`
	ResumeIDs  []string `json:"resumeIds"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rerank: rate limit: %w", err)
	}

	req := rerankRequest{Query: query}
	for _, c := range candidates {
		req.Documents = append(req.Documents, c.Text)
		req.ResumeIDs = append(req.ResumeIDs, c.ResumeID)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		logger.Warn().Err(err).Msg("reranker call failed")
		return nil, fmt.Errorf("rerank: call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank: provider status %d", resp.StatusCode)
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rerank: decode response: %w", err)
	}
	if len(out.Scores) != len(candidates) {
		return nil, fmt.Errorf("rerank: score count mismatch: got %d want %d", len(out.Scores), len(candidates))
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{ResumeID: c.ResumeID, Score: out.Scores[i]}
	}
	return results, nil
}
