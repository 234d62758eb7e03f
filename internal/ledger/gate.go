package ledger

import "context"

// GateMode selects how a resume's ledger entries are checked against a
// query's required skills.
type GateMode string

const (
	GateMatchAll       GateMode = "match_all"
	GateMatchAtLeast   GateMode = "match_at_least"
)

// Gate filters candidateIDs down to resumes whose ledger entries satisfy
// mode/threshold against requiredSkills (already canonicalized). match_all
// requires every required skill; match_at_least requires threshold of them.
// An empty requiredSkills list is a no-op gate: every candidate passes.
// The returned IDs keep the order ResumesWithAnySkill produced; they are
// not sorted by match count or ledger confidence.
func Gate(ctx context.Context, l Ledger, requiredSkills []string, mode GateMode, threshold int) ([]string, error) {
	if len(requiredSkills) == 0 {
		return nil, nil
	}
	candidateIDs, err := l.ResumesWithAnySkill(ctx, requiredSkills)
	if err != nil {
		return nil, err
	}

	want := threshold
	if mode == GateMatchAll {
		want = len(requiredSkills)
	}
	if want < 1 {
		want = 1
	}

	out := make([]string, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		matched, err := l.MatchedSkills(ctx, id, requiredSkills)
		if err != nil {
			return nil, err
		}
		if len(matched) >= want {
			out = append(out, id)
		}
	}
	return out, nil
}

// CeilHalf returns ceiling(n/2), the spec's match_at_least fallback
// threshold for must-have skills; it returns 0 for n <= 0.
func CeilHalf(n int) int {
	if n <= 0 {
		return 0
	}
	v := (n + 1) / 2
	if v < 1 {
		return 1
	}
	return v
}
