package agentic

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/skills"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// ChatModel is the narrow eino surface the JD-understanding stage depends
// on, matching the teacher's agent.ChatClient (pkg/agent/agent_stepper_react.go).
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

const intentSystemPrompt = `You are a recruiting intent extractor. Given a ` +
	`free-text job description, extract the candidate requirements as JSON ` +
	`with exactly these keys: must_have (array of skill strings), ` +
	`nice_to_have (array of skill strings), min_years_exp (integer, 0 if ` +
	`unspecified), role_keywords (array of strings). Respond with JSON only, ` +
	`no prose, no markdown fences.`

// ExtractMissionSpec turns free text into a MissionSpec via the chat model,
// with a deterministic regex/keyword fallback if the model call fails or
// returns malformed JSON — mirrors the original's jd_agent.py
// _fallback_parse behavior so a provider outage degrades the query rather
// than failing it outright.
func ExtractMissionSpec(ctx context.Context, model ChatModel, rawQuery string) (types.MissionSpec, error) {
	spec, err := extractViaModel(ctx, model, rawQuery)
	if err == nil {
		return spec, nil
	}
	logger.Warn().Err(err).Msg("jd_understanding: model extraction failed, falling back to heuristic parse")
	return fallbackParse(rawQuery), nil
}

func extractViaModel(ctx context.Context, model ChatModel, rawQuery string) (types.MissionSpec, error) {
	if model == nil {
		return types.MissionSpec{}, errNoModel
	}
	messages := []*schema.Message{
		{Role: schema.System, Content: intentSystemPrompt},
		{Role: schema.User, Content: rawQuery},
	}
	resp, err := model.Generate(ctx, messages)
	if err != nil {
		return types.MissionSpec{}, err
	}

	content := stripMarkdownFence(resp.Content)

	var parsed struct {
		MustHave     []string `json:"must_have"`
		NiceToHave   []string `json:"nice_to_have"`
		MinYearsExp  int      `json:"min_years_exp"`
		RoleKeywords []string `json:"role_keywords"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return types.MissionSpec{}, err
	}

	return types.MissionSpec{
		RawQuery:     rawQuery,
		MustHave:     skills.NormalizeAll(parsed.MustHave),
		NiceToHave:   skills.NormalizeAll(parsed.NiceToHave),
		MinYearsExp:  parsed.MinYearsExp,
		RoleKeywords: parsed.RoleKeywords,
		GateMode:     "match_at_least",
	}, nil
}

var errNoModel = &noModelError{}

type noModelError struct{}

func (*noModelError) Error() string { return "agentic: no chat model configured" }

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var yearsRegexp = regexp.MustCompile(`(\d+)\+?\s*years?`)

var heuristicStopWords = map[string]struct{}{
	"and": {}, "or": {}, "with": {}, "the": {}, "a": {}, "an": {}, "for": {},
	"of": {}, "in": {}, "to": {}, "experience": {}, "required": {}, "must": {},
	"have": {}, "strong": {}, "knowledge": {},
}

// fallbackParse extracts a minimal MissionSpec from raw text without a
// model: years of experience via regex, and candidate skill tokens by
// stripping stopwords and normalizing what's left.
func fallbackParse(rawQuery string) types.MissionSpec {
	minYears := 0
	if m := yearsRegexp.FindStringSubmatch(rawQuery); len(m) == 2 {
		if y, err := strconv.Atoi(m[1]); err == nil {
			minYears = y
		}
	}

	var tokens []string
	for _, word := range strings.Fields(rawQuery) {
		w := strings.ToLower(strings.Trim(word, ".,;:!?()[]{}\"'"))
		if w == "" {
			continue
		}
		if _, stop := heuristicStopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}

	return types.MissionSpec{
		RawQuery:    rawQuery,
		MustHave:    skills.NormalizeAll(tokens),
		MinYearsExp: minYears,
		GateMode:    "match_at_least",
	}
}
