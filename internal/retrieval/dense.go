package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/embedding"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// DenseRetriever implements C5: cosine similarity over embeddings already
// at rest in the chunk store. This repo does not build or manage an ANN
// index (spec §1 non-goals) — it scans the KPool-bounded candidate pool in
// process, which is the right tradeoff at the scale this repo targets.
type DenseRetriever struct {
	store    chunkstore.Store
	embedder embedding.Provider
	kPool    int
}

func NewDenseRetriever(store chunkstore.Store, embedder embedding.Provider, kPool int) *DenseRetriever {
	if kPool <= 0 {
		kPool = 500
	}
	return &DenseRetriever{store: store, embedder: embedder, kPool: kPool}
}

func (r *DenseRetriever) Search(ctx context.Context, queryText string, candidateIDs []string, limit int) ([]types.RetrievalHit, error) {
	queryVec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("dense: embed query: %w", err)
	}

	chunks, err := r.store.ChunksForResumes(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("dense: %w", err)
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
		if len(c.Embedding) == 0 {
			continue
		}
		sim := cosineSimilarity(queryVec, c.Embedding)
		if sim > 0 {
			pool = append(pool, scored{chunk: c, score: sim})
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
			Source:   "dense",
		}
	}
	return out, nil
}

// cosineSimilarity returns 0 for a zero-norm vector on either side, per the
// original's `_cosine_similarity` convention, rather than propagating NaN.
func cosineSimilarity(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		normA += af * af
		normB += bf * bf
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
