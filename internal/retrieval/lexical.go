// Package retrieval implements the lexical retriever (C4), dense retriever
// (C5), RRF fusion and evidence selection (C6), and the bounded scorer
// (C7).
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// stopWords are excluded from lexical scoring so common words don't drown
// out skill/term matches.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "for": {}, "to": {}, "with": {}, "is": {}, "are": {}, "be": {},
	"as": {}, "at": {}, "by": {}, "from": {}, "this": {}, "that": {}, "it": {},
}

// tokenize lowercases and splits on anything that isn't a letter, digit, or
// one of the symbols that matter inside skill tokens (c++, c#, node.js).
func tokenize(s string) []string {
	s = strings.ToLower(s)
	var b strings.Builder
	var tokens []string
	flush := func() {
		if b.Len() > 0 {
			tok := b.String()
			if _, stop := stopWords[tok]; !stop {
				tokens = append(tokens, tok)
			}
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '#', r == '.':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// LexicalRetriever implements C4: term-frequency scoring of query tokens
// against chunk text, over a KPool-bounded candidate pool fetched from the
// chunk store, sorted in Go then truncated to limit (see DESIGN.md, open
// question 1).
type LexicalRetriever struct {
	store chunkstore.Store
	kPool int
}

func NewLexicalRetriever(store chunkstore.Store, kPool int) *LexicalRetriever {
	if kPool <= 0 {
		kPool = 500
	}
	return &LexicalRetriever{store: store, kPool: kPool}
}

// Search scores the first kPool chunks (in chunk-store order) belonging to
// candidateIDs (or every resume if candidateIDs is empty) against
// queryText's tokens and returns the top
// `limit` hits ranked by score, 1-indexed rank ties broken by resumeID then
// chunkID for determinism.
func (r *LexicalRetriever) Search(ctx context.Context, queryText string, candidateIDs []string, limit int) ([]types.RetrievalHit, error) {
	queryTokens := tokenize(queryText)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	chunks, err := r.store.ChunksForResumes(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("lexical: %w", err)
	}
	if len(chunks) > r.kPool {
		chunks = chunks[:r.kPool]
	}

	type scored struct {
		chunk types.Chunk
		score float64
	}
	var pool []scored
	for _, c := range chunks {
		score := termFrequencyScore(queryTokens, c.Text)
		if score > 0 {
			pool = append(pool, scored{chunk: c, score: score})
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		if pool[i].chunk.ResumeID != pool[j].chunk.ResumeID {
			return pool[i].chunk.ResumeID < pool[j].chunk.ResumeID
		}
		return pool[i].chunk.ChunkID < pool[j].chunk.ChunkID
	})

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}

	out := make([]types.RetrievalHit, len(pool))
	for i, p := range pool {
		out[i] = types.RetrievalHit{
			ResumeID: p.chunk.ResumeID,
			ChunkID:  p.chunk.ChunkID,
			Rank:     i + 1,
			Score:    p.score,
			Source:   "sparse",
		}
	}
	return out, nil
}

// termFrequencyScore sums query token occurrence counts in text, case-
// insensitively. This is a raw count, not length-normalized: spec §4.4
// step 3 scores chunks by the sum of per-term occurrence counts.
func termFrequencyScore(queryTokens []string, text string) float64 {
	docTokens := tokenize(text)
	if len(docTokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(docTokens))
	for _, t := range docTokens {
		counts[t]++
	}
	var hits int
	for _, qt := range queryTokens {
		hits += counts[qt]
	}
	return float64(hits)
}
