package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

func TestFuseSumsReciprocalRanksAcrossLists(t *testing.T) {
	sparse := []types.RetrievalHit{
		{ResumeID: "r1", ChunkID: "c1", Rank: 1, Source: "sparse"},
		{ResumeID: "r2", ChunkID: "c2", Rank: 2, Source: "sparse"},
	}
	dense := []types.RetrievalHit{
		{ResumeID: "r1", ChunkID: "c3", Rank: 3, Source: "dense"},
	}

	fused := Fuse(sparse, dense)

	byID := map[string]types.FusedCandidate{}
	for _, f := range fused {
		byID[f.ResumeID] = f
	}

	wantR1 := 1.0/61.0 + 1.0/63.0
	assert.InDelta(t, wantR1, byID["r1"].RRFScore, 1e-9)
	assert.True(t, byID["r1"].SawSparse)
	assert.True(t, byID["r1"].SawDense)

	wantR2 := 1.0 / 62.0
	assert.InDelta(t, wantR2, byID["r2"].RRFScore, 1e-9)
	assert.True(t, byID["r2"].SawSparse)
	assert.False(t, byID["r2"].SawDense)
}

func TestSortAndCapOrdersDescendingAndTruncates(t *testing.T) {
	in := []types.FusedCandidate{
		{ResumeID: "low", RRFScore: 0.01},
		{ResumeID: "high", RRFScore: 0.5},
		{ResumeID: "mid", RRFScore: 0.2},
	}
	out := SortAndCap(in, 2)
	assert.Equal(t, []string{"high", "mid"}, []string{out[0].ResumeID, out[1].ResumeID})
}
