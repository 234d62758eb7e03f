package retrieval

import (
	"context"
	"sort"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// EvidenceConfig bounds evidence selection (spec §4.6: up to 3 items per
// candidate; char bounds supplemented from the original's evidence agent,
// see DESIGN.md).
type EvidenceConfig struct {
	MaxItemsPerCandidate     int
	MaxCharsPerChunk         int
	MaxTotalCharsPerCandidate int
}

func DefaultEvidenceConfig() EvidenceConfig {
	return EvidenceConfig{
		MaxItemsPerCandidate:      3,
		MaxCharsPerChunk:          800,
		MaxTotalCharsPerCandidate: 2500,
	}
}

// chunkHit carries the per-leg score(s) a chunk was retrieved with, keyed
// by (resumeID, chunkID).
type chunkHit struct {
	sparseScore float64
	sawSparse   bool
	denseScore  float64
	sawDense    bool
}

// BuildEvidence selects bounded evidence snippets for each fused candidate,
// given the sparse/dense hits that produced it. Per spec §4.6, evidence is
// the union of both lists, de-duplicated per candidate by
// (sectionType, sectionOrdinal) — keeping the highest-scoring chunk for
// each section slot — then ordered by score descending and truncated to
// the configured count/char bounds. A chunk seen in both lists is tagged
// why_matched "both"; otherwise "sparse" or "dense".
func BuildEvidence(ctx context.Context, store chunkstore.Store, candidates []types.FusedCandidate, sparse, dense []types.RetrievalHit, cfg EvidenceConfig) ([]types.EvidencePack, error) {
	hits := make(map[string]map[string]*chunkHit) // resumeID -> chunkID -> hit
	hitFor := func(resumeID, chunkID string) *chunkHit {
		m, ok := hits[resumeID]
		if !ok {
			m = make(map[string]*chunkHit)
			hits[resumeID] = m
		}
		h, ok := m[chunkID]
		if !ok {
			h = &chunkHit{}
			m[chunkID] = h
		}
		return h
	}
	for _, h := range sparse {
		ch := hitFor(h.ResumeID, h.ChunkID)
		ch.sawSparse = true
		if h.Score > ch.sparseScore {
			ch.sparseScore = h.Score
		}
	}
	for _, h := range dense {
		ch := hitFor(h.ResumeID, h.ChunkID)
		ch.sawDense = true
		if h.Score > ch.denseScore {
			ch.denseScore = h.Score
		}
	}

	var allChunkIDs []string
	for _, chunks := range hits {
		for id := range chunks {
			allChunkIDs = append(allChunkIDs, id)
		}
	}
	chunks, err := store.ChunksByIDs(ctx, allChunkIDs)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]types.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ChunkID] = c
	}

	packs := make([]types.EvidencePack, 0, len(candidates))
	for _, cand := range candidates {
		chunkHits := hits[cand.ResumeID]
		items := make([]types.EvidenceItem, 0, len(chunkHits))
		for chunkID, ch := range chunkHits {
			chunk, ok := chunkByID[chunkID]
			if !ok {
				continue
			}
			why := "sparse"
			score := ch.sparseScore
			switch {
			case ch.sawSparse && ch.sawDense:
				why = "both"
				if ch.denseScore > score {
					score = ch.denseScore
				}
			case ch.sawDense:
				why = "dense"
				score = ch.denseScore
			}
			snippet := chunk.Text
			if len(snippet) > cfg.MaxCharsPerChunk {
				snippet = snippet[:cfg.MaxCharsPerChunk]
			}
			items = append(items, types.EvidenceItem{
				ChunkID:        chunk.ChunkID,
				SectionType:    chunk.SectionType,
				SectionOrdinal: chunk.SectionOrdinal,
				Snippet:        snippet,
				Score:          score,
				WhyMatched:     why,
			})
		}

		items = dedupeBySection(items)

		sort.Slice(items, func(i, j int) bool {
			if items[i].Score != items[j].Score {
				return items[i].Score > items[j].Score
			}
			return items[i].ChunkID < items[j].ChunkID
		})

		items = boundItems(items, cfg)
		packs = append(packs, types.EvidencePack{ResumeID: cand.ResumeID, Items: items})
	}
	return packs, nil
}

type sectionKey struct {
	sectionType types.SectionType
	ordinal     int
}

// dedupeBySection keeps, for each (sectionType, sectionOrdinal), only the
// highest-scoring evidence item — the dedup key spec §4.6 requires.
func dedupeBySection(items []types.EvidenceItem) []types.EvidenceItem {
	best := make(map[sectionKey]types.EvidenceItem, len(items))
	for _, it := range items {
		key := sectionKey{it.SectionType, it.SectionOrdinal}
		if cur, ok := best[key]; !ok || it.Score > cur.Score {
			best[key] = it
		}
	}
	out := make([]types.EvidenceItem, 0, len(best))
	for _, it := range best {
		out = append(out, it)
	}
	return out
}

func boundItems(items []types.EvidenceItem, cfg EvidenceConfig) []types.EvidenceItem {
	var out []types.EvidenceItem
	total := 0
	for _, it := range items {
		if len(out) >= cfg.MaxItemsPerCandidate {
			break
		}
		if total+len(it.Snippet) > cfg.MaxTotalCharsPerCandidate {
			remaining := cfg.MaxTotalCharsPerCandidate - total
			if remaining <= 0 {
				break
			}
			it.Snippet = it.Snippet[:remaining]
		}
		total += len(it.Snippet)
		out = append(out, it)
	}
	return out
}
