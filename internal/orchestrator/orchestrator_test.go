package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/apierr"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/retrieval"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// fakeStore is an in-memory chunkstore.Store, letting the classic pipeline
// be exercised end to end without a database.
type fakeStore struct {
	chunks []types.Chunk
}

func (f *fakeStore) ChunksForResumes(ctx context.Context, resumeIDs []string) ([]types.Chunk, error) {
	if len(resumeIDs) == 0 {
		return f.chunks, nil
	}
	allowed := make(map[string]struct{}, len(resumeIDs))
	for _, id := range resumeIDs {
		allowed[id] = struct{}{}
	}
	var out []types.Chunk
	for _, c := range f.chunks {
		if _, ok := allowed[c.ResumeID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ChunksByIDs(ctx context.Context, chunkIDs []string) ([]types.Chunk, error) {
	want := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		want[id] = struct{}{}
	}
	var out []types.Chunk
	for _, c := range f.chunks {
		if _, ok := want[c.ChunkID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeEmbedder returns a fixed vector regardless of text, which is enough
// to exercise the dense leg's cosine-similarity plumbing deterministically.
type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

type fakeLedgerFixture struct {
	skills map[string][]string // resumeID -> canonical skills
}

func (f *fakeLedgerFixture) SkillsFor(ctx context.Context, resumeID string) ([]types.SkillEvidence, error) {
	return nil, nil
}

func (f *fakeLedgerFixture) ResumesWithAnySkill(ctx context.Context, canonicalSkills []string) ([]string, error) {
	want := make(map[string]struct{}, len(canonicalSkills))
	for _, s := range canonicalSkills {
		want[s] = struct{}{}
	}
	seen := map[string]struct{}{}
	var out []string
	for id, skills := range f.skills {
		for _, s := range skills {
			if _, ok := want[s]; ok {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					out = append(out, id)
				}
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLedgerFixture) MatchedSkills(ctx context.Context, resumeID string, canonicalSkills []string) ([]string, error) {
	have := make(map[string]struct{})
	for _, s := range f.skills[resumeID] {
		have[s] = struct{}{}
	}
	var out []string
	for _, s := range canonicalSkills {
		if _, ok := have[s]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

var _ ledger.Ledger = (*fakeLedgerFixture)(nil)

func TestQueryRanksCandidatesByFinalScore(t *testing.T) {
	store := &fakeStore{chunks: []types.Chunk{
		{ResumeID: "strong", ChunkID: "strong-1", SectionType: types.SectionWorkExperience, Text: "Built scalable go microservices with kubernetes and terraform.", Embedding: []float32{1, 0, 0}},
		{ResumeID: "weak", ChunkID: "weak-1", SectionType: types.SectionWorkExperience, Text: "Brief mention of go and kubernetes on an otherwise unrelated resume.", Embedding: []float32{0, 1, 0}},
	}}
	led := &fakeLedgerFixture{skills: map[string][]string{
		"strong": {"go", "kubernetes", "terraform"},
		"weak":   {"go", "kubernetes"},
	}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &fakeEmbedder{vec: []float32{1, 0, 0}}, 500)

	cfg := DefaultConfig()
	cfg.LegTimeout = time.Second
	orc := New(store, led, lexical, dense, nil, nil, cfg)

	result, err := orc.Query(context.Background(), QueryRequest{Skills: []string{"go", "kubernetes", "terraform"}, Mode: ledger.GateMatchAtLeast, MinMatch: 2})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "strong", result.Candidates[0].ResumeID)
}

func TestQueryWithNoSkillsSkipsGating(t *testing.T) {
	store := &fakeStore{chunks: []types.Chunk{
		{ResumeID: "r1", ChunkID: "r1-1", SectionType: types.SectionSkills, Text: "python and data analysis", Embedding: []float32{0, 1}},
	}}
	led := &fakeLedgerFixture{skills: map[string][]string{"r1": {"python"}}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &fakeEmbedder{vec: []float32{0, 1}}, 500)

	cfg := DefaultConfig()
	cfg.LegTimeout = time.Second
	orc := New(store, led, lexical, dense, nil, nil, cfg)

	result, err := orc.Query(context.Background(), QueryRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	require.NotNil(t, result.HybridStats)
}

func TestQueryAtLeastModeRespectsMinMatch(t *testing.T) {
	store := &fakeStore{chunks: []types.Chunk{
		{ResumeID: "c1", ChunkID: "c1-1", SectionType: types.SectionSkills, Text: "python and go engineer", Embedding: []float32{1, 0}},
	}}
	led := &fakeLedgerFixture{skills: map[string][]string{"c1": {"python", "go"}}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &fakeEmbedder{vec: []float32{1, 0}}, 500)

	cfg := DefaultConfig()
	cfg.LegTimeout = time.Second
	orc := New(store, led, lexical, dense, nil, nil, cfg)

	result, err := orc.Query(context.Background(), QueryRequest{
		Skills: []string{"python", "go", "rust"}, Mode: ledger.GateMatchAtLeast, MinMatch: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "c1", result.Candidates[0].ResumeID)
	assert.ElementsMatch(t, []string{"python", "go"}, result.Candidates[0].MatchedSkills)
}

func TestQueryGateWithNoMatchesReturnsEmptyNotFallback(t *testing.T) {
	store := &fakeStore{chunks: []types.Chunk{
		{ResumeID: "r1", ChunkID: "r1-1", SectionType: types.SectionSkills, Text: "python and machine learning", Embedding: []float32{1, 0}},
	}}
	led := &fakeLedgerFixture{skills: map[string][]string{"r1": {"python", "machine learning"}}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &fakeEmbedder{vec: []float32{1, 0}}, 500)

	cfg := DefaultConfig()
	cfg.LegTimeout = time.Second
	orc := New(store, led, lexical, dense, nil, nil, cfg)

	// Only r1 exists and it lacks "rust", so match_all on {python, rust}
	// gates everyone out. The classic pipeline must return empty here, not
	// fall back to ungated candidates.
	result, err := orc.Query(context.Background(), QueryRequest{Skills: []string{"python", "rust"}, Mode: ledger.GateMatchAll})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestQueryWithOnlyPunctuationSkillsIsInvalid(t *testing.T) {
	store := &fakeStore{}
	led := &fakeLedgerFixture{skills: map[string][]string{}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &fakeEmbedder{vec: []float32{1, 0}}, 500)

	orc := New(store, led, lexical, dense, nil, nil, DefaultConfig())

	_, err := orc.Query(context.Background(), QueryRequest{Skills: []string{";", ",,,"}})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindInvalidQuery, apiErr.Kind)
}
