package retrieval

import (
	"sort"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// RRFK is the spec's fixed RRF constant.
const RRFK = 60

// Fuse implements C6's RRF step: rrf(resumeID) = sum over lists L of
// 1/(RRFK + rankL(resumeID)), with a missing list contributing zero.
// Ranks are computed per resume as the best (lowest) chunk rank that
// resume achieved in that list, matching the original's
// _aggregate_to_resume_ranks.
func Fuse(sparse, dense []types.RetrievalHit) []types.FusedCandidate {
	sparseRank := bestRankPerResume(sparse)
	denseRank := bestRankPerResume(dense)

	seen := make(map[string]struct{}, len(sparseRank)+len(denseRank))
	for id := range sparseRank {
		seen[id] = struct{}{}
	}
	for id := range denseRank {
		seen[id] = struct{}{}
	}

	out := make([]types.FusedCandidate, 0, len(seen))
	for id := range seen {
		var score float64
		_, sawSparse := sparseRank[id]
		_, sawDense := denseRank[id]
		if sawSparse {
			score += 1.0 / float64(RRFK+sparseRank[id])
		}
		if sawDense {
			score += 1.0 / float64(RRFK+denseRank[id])
		}
		out = append(out, types.FusedCandidate{
			ResumeID:  id,
			RRFScore:  score,
			SawSparse: sawSparse,
			SawDense:  sawDense,
		})
	}
	return out
}

func bestRankPerResume(hits []types.RetrievalHit) map[string]int {
	best := make(map[string]int, len(hits))
	for _, h := range hits {
		if cur, ok := best[h.ResumeID]; !ok || h.Rank < cur {
			best[h.ResumeID] = h.Rank
		}
	}
	return best
}

// SortAndCap sorts fused candidates by RRF score descending (ties broken by
// resumeID for determinism) and truncates to kPool, mirroring the
// original's fusion_node sort+cap behavior.
func SortAndCap(candidates []types.FusedCandidate, kPool int) []types.FusedCandidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RRFScore != candidates[j].RRFScore {
			return candidates[i].RRFScore > candidates[j].RRFScore
		}
		return candidates[i].ResumeID < candidates[j].ResumeID
	})
	if kPool > 0 && len(candidates) > kPool {
		candidates = candidates[:kPool]
	}
	return candidates
}
