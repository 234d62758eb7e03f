package agentic

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/retrieval"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// fixedChatModel is an in-memory ChatModel, grounded on the teacher's
// MockChatClient (pkg/agent/mock_model.go) fixed-response pattern, trimmed
// to the single Generate method this pipeline's ChatModel interface needs.
type fixedChatModel struct {
	content string
	err     error
}

func (f *fixedChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.content}, nil
}

type pipelineFakeStore struct {
	chunks []types.Chunk
}

func (f *pipelineFakeStore) ChunksForResumes(ctx context.Context, resumeIDs []string) ([]types.Chunk, error) {
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

func (f *pipelineFakeStore) ChunksByIDs(ctx context.Context, chunkIDs []string) ([]types.Chunk, error) {
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

type pipelineFakeEmbedder struct{ vec []float32 }

func (f *pipelineFakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

type pipelineFakeLedger struct {
	skills map[string][]string
}

func (f *pipelineFakeLedger) SkillsFor(ctx context.Context, resumeID string) ([]types.SkillEvidence, error) {
	return nil, nil
}

func (f *pipelineFakeLedger) ResumesWithAnySkill(ctx context.Context, canonicalSkills []string) ([]string, error) {
	want := make(map[string]struct{}, len(canonicalSkills))
	for _, s := range canonicalSkills {
		want[s] = struct{}{}
	}
	var out []string
	for id, skills := range f.skills {
		for _, s := range skills {
			if _, ok := want[s]; ok {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

func (f *pipelineFakeLedger) MatchedSkills(ctx context.Context, resumeID string, canonicalSkills []string) ([]string, error) {
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

var _ ledger.Ledger = (*pipelineFakeLedger)(nil)

func TestPipelineRunEmitsStagesAndResult(t *testing.T) {
	store := &pipelineFakeStore{chunks: []types.Chunk{
		{ResumeID: "r1", ChunkID: "r1-1", SectionType: types.SectionWorkExperience, Text: "Senior go engineer with kubernetes experience.", Embedding: []float32{1, 0}},
	}}
	led := &pipelineFakeLedger{skills: map[string][]string{"r1": {"go", "kubernetes"}}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &pipelineFakeEmbedder{vec: []float32{1, 0}}, 500)

	extraction, _ := json.Marshal(map[string]interface{}{
		"must_have":     []string{"go", "kubernetes"},
		"nice_to_have":  []string{},
		"min_years_exp": 3,
		"role_keywords": []string{"backend"},
	})
	model := &fixedChatModel{content: string(extraction)}

	cfg := DefaultConfig()
	cfg.LegTimeout = time.Second
	cfg.HardTimeout = 5 * time.Second
	cfg.MinStrongResults = 1
	pipeline := New(store, led, lexical, dense, nil, model, cfg)

	var events []types.Event
	pipeline.Run(context.Background(), "Looking for a senior go engineer with kubernetes, 3+ years", func(ev types.Event) {
		events = append(events, ev)
	})

	require.NotEmpty(t, events)
	assert.Equal(t, types.EventDone, events[len(events)-1].Type)

	var gotResult *types.ShortlistResult
	for _, ev := range events {
		if ev.Type == types.EventResult {
			gotResult = ev.Result
		}
		assert.NotEqual(t, types.EventError, ev.Type, "unexpected pipeline error event: %+v", ev)
	}
	require.NotNil(t, gotResult)
	require.Len(t, gotResult.Candidates, 1)
	assert.Equal(t, "r1", gotResult.Candidates[0].ResumeID)
}

func TestPipelineRunDegradesToHeuristicWhenModelFails(t *testing.T) {
	store := &pipelineFakeStore{chunks: []types.Chunk{
		{ResumeID: "r1", ChunkID: "r1-1", SectionType: types.SectionSkills, Text: "go and terraform", Embedding: []float32{1, 0}},
	}}
	led := &pipelineFakeLedger{skills: map[string][]string{"r1": {"go", "terraform"}}}
	lexical := retrieval.NewLexicalRetriever(store, 500)
	dense := retrieval.NewDenseRetriever(store, &pipelineFakeEmbedder{vec: []float32{1, 0}}, 500)

	model := &fixedChatModel{err: assertErr}

	cfg := DefaultConfig()
	cfg.LegTimeout = time.Second
	cfg.HardTimeout = 5 * time.Second
	pipeline := New(store, led, lexical, dense, nil, model, cfg)

	var sawDone bool
	pipeline.Run(context.Background(), "go and terraform engineer", func(ev types.Event) {
		if ev.Type == types.EventDone {
			sawDone = true
		}
	})
	assert.True(t, sawDone)
}

var assertErr = &mockModelError{}

type mockModelError struct{}

func (*mockModelError) Error() string { return "mock model unavailable" }
