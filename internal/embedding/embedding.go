// Package embedding adapts an HTTP embedding provider (spec §6.2) to the
// narrow Provider interface the dense retriever depends on, following the
// teacher's pkg/parser/embedding_aliyun.go HTTP client shape.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ratelimit"
)

// Provider embeds free-text into a fixed-dimension vector. The concrete
// model behind it is an external collaborator (spec §1 out-of-scope); this
// repo only defines and calls the interface.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPProvider calls a JSON embedding endpoint, mirroring the teacher's
// AliyunEmbedder request/response shape generalized to a configurable
// endpoint.
type HTTPProvider struct {
	endpoint   string
	model      string
	dimensions int
	apiKey     string
	client     *http.Client
	limiter    *ratelimit.TokenBucket
}

type Config struct {
	Endpoint   string
	Model      string
	Dimensions int
	APIKey     string
	TimeoutMS  int
	QPM        int
}

func NewHTTPProvider(cfg Config) *HTTPProvider {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: timeout},
		limiter:    ratelimit.New(cfg.QPM),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding: rate limit: %w", err)
	}

	body, err := json.Marshal(embedRequest{Model: p.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		logger.Warn().Int("status", resp.StatusCode).Str("body", string(b)).Msg("embedding provider returned non-200")
		return nil, fmt.Errorf("embedding: provider status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response")
	}
	vec := out.Data[0].Embedding
	if p.dimensions > 0 && len(vec) != p.dimensions {
		return nil, fmt.Errorf("embedding: dimension mismatch: got %d want %d", len(vec), p.dimensions)
	}
	return vec, nil
}
