package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// fakeLedger is an in-memory Ledger for exercising Gate without a database,
// following the teacher's preference for narrow interfaces with hand-rolled
// fakes over a mocked gorm layer.
type fakeLedger struct {
	bySkill map[string][]string // canonicalSkill -> resumeIDs
}

func (f *fakeLedger) SkillsFor(ctx context.Context, resumeID string) ([]types.SkillEvidence, error) {
	return nil, nil
}

func (f *fakeLedger) ResumesWithAnySkill(ctx context.Context, canonicalSkills []string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range canonicalSkills {
		for _, id := range f.bySkill[s] {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) MatchedSkills(ctx context.Context, resumeID string, canonicalSkills []string) ([]string, error) {
	var out []string
	for _, s := range canonicalSkills {
		for _, id := range f.bySkill[s] {
			if id == resumeID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{bySkill: map[string][]string{
		"go":         {"r1", "r2", "r3"},
		"kubernetes": {"r1", "r2"},
		"terraform":  {"r1"},
	}}
}

func TestGateEmptyRequiredSkillsIsNoOp(t *testing.T) {
	ids, err := Gate(context.Background(), newFakeLedger(), nil, GateMatchAll, 0)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestGateMatchAllRequiresEverySkill(t *testing.T) {
	ids, err := Gate(context.Background(), newFakeLedger(), []string{"go", "kubernetes", "terraform"}, GateMatchAll, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)
}

func TestGateMatchAtLeastUsesThreshold(t *testing.T) {
	ids, err := Gate(context.Background(), newFakeLedger(), []string{"go", "kubernetes", "terraform"}, GateMatchAtLeast, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, ids)
}

func TestCeilHalf(t *testing.T) {
	assert.Equal(t, 0, CeilHalf(0))
	assert.Equal(t, 1, CeilHalf(1))
	assert.Equal(t, 1, CeilHalf(2))
	assert.Equal(t, 2, CeilHalf(3))
	assert.Equal(t, 2, CeilHalf(4))
	assert.Equal(t, 3, CeilHalf(5))
}
