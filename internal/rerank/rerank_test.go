package rerank

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRerankerScoresCandidatesInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "senior go engineer", req.Query)
		assert.Equal(t, []string{"r1", "r2"}, req.ResumeIDs)

		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.9, 0.4}})
	}))
	defer server.Close()

	r := NewHTTPReranker(Config{Endpoint: server.URL})
	results, err := r.Rerank(t.Context(), "senior go engineer", []Candidate{
		{ResumeID: "r1", Text: "built distributed systems in go"},
		{ResumeID: "r2", Text: "managed a sales team"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{ResumeID: "r1", Score: 0.9}, results[0])
	assert.Equal(t, Result{ResumeID: "r2", Score: 0.4}, results[1])
}

func TestHTTPRerankerEmptyCandidatesShortCircuits(t *testing.T) {
	r := NewHTTPReranker(Config{Endpoint: "http://unused.invalid"})
	results, err := r.Rerank(t.Context(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestHTTPRerankerScoreCountMismatchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.9}})
	}))
	defer server.Close()

	r := NewHTTPReranker(Config{Endpoint: server.URL})
	_, err := r.Rerank(t.Context(), "query", []Candidate{
		{ResumeID: "r1", Text: "a"},
		{ResumeID: "r2", Text: "b"},
	})
	assert.ErrorContains(t, err, "score count mismatch")
}
