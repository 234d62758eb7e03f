package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreFullCoverageAndStrongSemantic(t *testing.T) {
	b := Score(4, 4, 1.0) // rrf*1500 clamps to 50
	assert.Equal(t, 1.0, b.CoverageRatio)
	assert.Equal(t, 50.0, b.SkillScore)
	assert.Equal(t, 50.0, b.SemanticScore)
	assert.Equal(t, 100.0, b.FinalScore)
}

func TestScoreNoQuerySkillsGivesZeroCoverage(t *testing.T) {
	b := Score(0, 0, 0.02)
	assert.Equal(t, 0.0, b.CoverageRatio)
	assert.Equal(t, 0.0, b.SkillScore)
	assert.InDelta(t, 30.0, b.SemanticScore, 0.001)
	assert.InDelta(t, 30.0, b.FinalScore, 0.001)
}

func TestScorePartialCoverage(t *testing.T) {
	b := Score(1, 4, 0.0)
	assert.Equal(t, 0.25, b.CoverageRatio)
	assert.Equal(t, 12.5, b.SkillScore)
	assert.Equal(t, 0.0, b.SemanticScore)
	assert.Equal(t, 12.5, b.FinalScore)
}
