package retrieval

import "github.com/adnankarim/resume-search-shortlist-engine/internal/types"

// Score implements C7's bounded scorer exactly as specified:
//
//	coverageRatio = matchedCount / totalQuerySkills
//	skillScore    = coverageRatio * 50
//	semanticScore = min(rrfScore * 1500, 50)
//	finalScore    = skillScore + semanticScore   (<= 100)
//
// This formula is authoritative over the original implementation's
// W_RRF/W_CE weighted blend (see DESIGN.md) — the RRF-to-semantic-score
// scaling constant (1500) and the 50/50 split between skill and semantic
// weight are spec-given, not tuned here.
func Score(matchedCount, totalQuerySkills int, rrfScore float64) types.ScoreBreakdown {
	var coverageRatio float64
	if totalQuerySkills > 0 {
		coverageRatio = float64(matchedCount) / float64(totalQuerySkills)
	}
	skillScore := coverageRatio * 50
	semanticScore := rrfScore * 1500
	if semanticScore > 50 {
		semanticScore = 50
	}
	final := skillScore + semanticScore
	if final > 100 {
		final = 100
	}
	return types.ScoreBreakdown{
		CoverageRatio: coverageRatio,
		SkillScore:    skillScore,
		SemanticScore: semanticScore,
		FinalScore:    final,
	}
}
