// Package agentic implements the agentic SSE pipeline (C9): a fixed
// jd_understanding -> retrieval -> fusion -> evidence_building -> ranking
// -> assembly stage machine, emitting typed progress events, grounded on
// the original's app/agents/graph.py linear wiring and streaming.py's SSE
// event_generator.
package agentic

import (
	"context"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/rerank"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/retrieval"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// Config tunes the agentic pipeline, mirroring the classic orchestrator's
// knobs plus a hard overall deadline and a reranker candidate cap.
type Config struct {
	KPool             int
	KSparse           int
	KDense            int
	KRerank           int
	MinRelevanceScore float64
	MinStrongResults  int
	LegTimeout        time.Duration
	HardTimeout       time.Duration
	Limit             int
}

func DefaultConfig() Config {
	return Config{
		KPool:             500,
		KSparse:           300,
		KDense:            300,
		KRerank:           100,
		MinRelevanceScore: 20,
		MinStrongResults:  3,
		LegTimeout:        2 * time.Second,
		HardTimeout:       20 * time.Second,
		Limit:             25,
	}
}

// Pipeline wires the skill ledger, chunk store, retrievers, and reranker
// into the agentic stage machine.
type Pipeline struct {
	store    chunkstore.Store
	led      ledger.Ledger
	lexical  *retrieval.LexicalRetriever
	dense    *retrieval.DenseRetriever
	reranker rerank.Reranker
	model    ChatModel
	evCfg    retrieval.EvidenceConfig
	cfg      Config
}

func New(store chunkstore.Store, led ledger.Ledger, lexical *retrieval.LexicalRetriever, dense *retrieval.DenseRetriever, reranker rerank.Reranker, model ChatModel, cfg Config) *Pipeline {
	return &Pipeline{
		store:    store,
		led:      led,
		lexical:  lexical,
		dense:    dense,
		reranker: reranker,
		model:    model,
		evCfg:    retrieval.DefaultEvidenceConfig(),
		cfg:      cfg,
	}
}

// Run executes the stage machine for a free-text query, emitting events to
// emit as it goes. Run returns once the "done" event has been emitted or
// ctx is canceled — callers (the SSE handler) should stop reading after
// that point.
func (p *Pipeline) Run(ctx context.Context, rawQuery string, rawEmit func(types.Event)) {
	emit := func(ev types.Event) {
		ev.Timestamp = time.Now()
		rawEmit(ev)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.HardTimeout)
	defer cancel()

	defer func() {
		if ctx.Err() != nil {
			emit(types.Event{Type: types.EventError, ErrorText: ctx.Err().Error()})
		}
		emit(types.Event{Type: types.EventDone})
	}()

	mission, err := p.stageJDUnderstanding(ctx, rawQuery, emit)
	if err != nil {
		emit(types.Event{Type: types.EventError, ErrorText: err.Error()})
		return
	}

	candidates, err := p.runPass(ctx, mission, emit)
	if err != nil {
		emit(types.Event{Type: types.EventError, ErrorText: err.Error()})
		return
	}

	strong := countStrong(candidates, p.cfg.MinRelevanceScore)
	if strong >= p.cfg.MinStrongResults || len(mission.MustHave) == 0 {
		quality := types.MatchQualityStrong
		if len(candidates) == 0 {
			quality = types.MatchQualityNone
		}
		p.stageAssembly(ctx, mission, candidates, quality, emit)
		return
	}

	// Weak-match fallback (spec §4.9): fewer than MinStrongResults candidates
	// cleared MIN_RELEVANCE_SCORE, so drop the must-have gate and re-run
	// retrieval/fusion/evidence/ranking with everything folded into
	// nice-to-have. The classic orchestrator has no such fallback.
	logger.Info().Int("strong", strong).Msg("agentic pipeline: weak match fallback, dropping must-have gate")
	fallbackMission := mission
	fallbackMission.MustHave = nil
	fallbackMission.NiceToHave = append(append([]string{}, mission.MustHave...), mission.NiceToHave...)
	fallbackMission.GateMode = "match_at_least"
	fallbackMission.GateThreshold = 0

	fallback, err := p.runPass(ctx, fallbackMission, emit)
	if err != nil {
		emit(types.Event{Type: types.EventError, ErrorText: err.Error()})
		return
	}

	quality := types.MatchQualityWeak
	if len(fallback) == 0 {
		quality = types.MatchQualityNone
	}
	p.stageAssembly(ctx, mission, fallback, quality, emit)
}

// runPass drives retrieval -> fusion -> evidence_building -> ranking for a
// single mission spec, returning the ranked candidate set.
func (p *Pipeline) runPass(ctx context.Context, mission types.MissionSpec, emit func(types.Event)) ([]types.Candidate, error) {
	sparse, dense, _, err := p.stageRetrieval(ctx, mission, emit)
	if err != nil {
		return nil, err
	}

	fused := p.stageFusion(ctx, sparse, dense, emit)

	packs, err := p.stageEvidence(ctx, fused, sparse, dense, emit)
	if err != nil {
		return nil, err
	}

	return p.stageRanking(ctx, mission, fused, packs, emit)
}

func countStrong(candidates []types.Candidate, minRelevanceScore float64) int {
	strong := 0
	for _, c := range candidates {
		if c.Score.FinalScore >= minRelevanceScore {
			strong++
		}
	}
	return strong
}

func (p *Pipeline) stageJDUnderstanding(ctx context.Context, rawQuery string, emit func(types.Event)) (types.MissionSpec, error) {
	start := time.Now()
	emit(types.Event{Type: types.EventAgentStart, Stage: types.StageJDUnderstanding, Agent: "JDUnderstanding", Message: "parsing job description into a mission spec"})

	mission, err := ExtractMissionSpec(ctx, p.model, rawQuery)
	if err != nil {
		return types.MissionSpec{}, err
	}

	emit(types.Event{Type: types.EventMissionSpec, Stage: types.StageJDUnderstanding, Mission: &mission})
	emit(types.Event{Type: types.EventStageComplete, Stage: types.StageJDUnderstanding, TimingMS: time.Since(start).Milliseconds(),
		Message: "mission spec extracted"})
	return mission, nil
}

func (p *Pipeline) stageRetrieval(ctx context.Context, mission types.MissionSpec, emit func(types.Event)) ([]types.RetrievalHit, []types.RetrievalHit, []string, error) {
	start := time.Now()
	emit(types.Event{Type: types.EventAgentStart, Stage: types.StageRetrieval, Agent: "Retriever", Message: "starting multi-strategy candidate retrieval"})

	var candidateIDs []string
	if len(mission.MustHave) > 0 {
		emit(types.Event{Type: types.EventToolCall, Stage: types.StageRetrieval, Tool: "search_skills_db", Message: "gating candidates on must-have skills"})
		minMatch := ledger.CeilHalf(len(mission.MustHave))
		ids, err := ledger.Gate(ctx, p.led, mission.MustHave, ledger.GateMatchAtLeast, minMatch)
		if err != nil {
			return nil, nil, nil, err
		}
		candidateIDs = ids
		emit(types.Event{Type: types.EventToolResult, Stage: types.StageRetrieval, Tool: "search_skills_db",
			Message: formatCount("candidates matched skill gate", len(candidateIDs))})
	}

	allSkills := append(append([]string{}, mission.MustHave...), mission.NiceToHave...)
	queryText := mission.RawQuery
	if queryText == "" {
		queryText = joinSkills(allSkills)
	}

	emit(types.Event{Type: types.EventToolCall, Stage: types.StageRetrieval, Tool: "lexical_search_chunks", Message: "running keyword search"})
	emit(types.Event{Type: types.EventToolCall, Stage: types.StageRetrieval, Tool: "vector_search_chunks", Message: "running semantic search"})

	var sparse, dense []types.RetrievalHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, p.cfg.LegTimeout)
		defer cancel()
		hits, err := p.lexical.Search(legCtx, queryText, candidateIDs, p.cfg.KSparse)
		if err != nil {
			logger.Warn().Err(err).Msg("agentic: lexical leg failed")
			return nil
		}
		sparse = hits
		return nil
	})
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, p.cfg.LegTimeout)
		defer cancel()
		hits, err := p.dense.Search(legCtx, queryText, candidateIDs, p.cfg.KDense)
		if err != nil {
			logger.Warn().Err(err).Msg("agentic: dense leg failed")
			return nil
		}
		dense = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	emit(types.Event{Type: types.EventToolResult, Stage: types.StageRetrieval, Tool: "lexical_search_chunks",
		Message: formatCount("lexical hits", len(sparse))})
	emit(types.Event{Type: types.EventToolResult, Stage: types.StageRetrieval, Tool: "vector_search_chunks",
		Message: formatCount("vector hits", len(dense))})
	emit(types.Event{Type: types.EventStageComplete, Stage: types.StageRetrieval, TimingMS: time.Since(start).Milliseconds(),
		Message: "retrieval complete"})
	return sparse, dense, candidateIDs, nil
}

func (p *Pipeline) stageFusion(ctx context.Context, sparse, dense []types.RetrievalHit, emit func(types.Event)) []types.FusedCandidate {
	start := time.Now()
	emit(types.Event{Type: types.EventAgentStart, Stage: types.StageFusion, Agent: "Fusion", Message: "fusing lexical and vector rankings"})

	fused := retrieval.Fuse(sparse, dense)
	fused = retrieval.SortAndCap(fused, p.cfg.KPool)

	emit(types.Event{Type: types.EventStageComplete, Stage: types.StageFusion, TimingMS: time.Since(start).Milliseconds(),
		Message: formatCount("candidates after fusion", len(fused))})
	return fused
}

func (p *Pipeline) stageEvidence(ctx context.Context, fused []types.FusedCandidate, sparse, dense []types.RetrievalHit, emit func(types.Event)) ([]types.EvidencePack, error) {
	start := time.Now()
	emit(types.Event{Type: types.EventAgentStart, Stage: types.StageEvidence, Agent: "EvidenceBuilder", Message: "collecting bounded evidence per candidate"})

	packs, err := retrieval.BuildEvidence(ctx, p.store, fused, sparse, dense, p.evCfg)
	if err != nil {
		return nil, err
	}

	emit(types.Event{Type: types.EventStageComplete, Stage: types.StageEvidence, TimingMS: time.Since(start).Milliseconds(),
		Message: formatCount("evidence packs built", len(packs))})
	return packs, nil
}

func (p *Pipeline) stageRanking(ctx context.Context, mission types.MissionSpec, fused []types.FusedCandidate, packs []types.EvidencePack, emit func(types.Event)) ([]types.Candidate, error) {
	start := time.Now()
	emit(types.Event{Type: types.EventAgentStart, Stage: types.StageRanking, Agent: "Ranker", Message: "scoring and reranking candidates"})

	evidenceByID := make(map[string]types.EvidencePack, len(packs))
	for _, pk := range packs {
		evidenceByID[pk.ResumeID] = pk
	}

	allSkills := append(append([]string{}, mission.MustHave...), mission.NiceToHave...)
	candidates := make([]types.Candidate, 0, len(fused))
	for _, f := range fused {
		matched, err := p.led.MatchedSkills(ctx, f.ResumeID, allSkills)
		if err != nil {
			return nil, err
		}
		score := retrieval.Score(len(matched), len(allSkills), f.RRFScore)
		pack := evidenceByID[f.ResumeID]
		candidates = append(candidates, types.Candidate{
			ResumeID:      f.ResumeID,
			MatchedSkills: matched,
			Evidence:      pack.Items,
			Score:         score,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score.FinalScore != candidates[j].Score.FinalScore {
			return candidates[i].Score.FinalScore > candidates[j].Score.FinalScore
		}
		return candidates[i].ResumeID < candidates[j].ResumeID
	})

	if p.reranker != nil && len(candidates) > 0 {
		candidates = p.applyRerank(ctx, mission.RawQuery, candidates, emit)
	}
	if p.cfg.Limit > 0 && len(candidates) > p.cfg.Limit {
		candidates = candidates[:p.cfg.Limit]
	}

	emit(types.Event{Type: types.EventStageComplete, Stage: types.StageRanking, TimingMS: time.Since(start).Milliseconds(),
		Message: formatCount("candidates ranked", len(candidates))})
	return candidates, nil
}

// applyRerank calls the cross-encoder reranker (C10) for the top KRerank
// candidates (by FinalScore) and reorders just that prefix by cross-encoder
// score, leaving the rest of the pool in its existing order — the same
// expand-reorder shape as the classic orchestrator's applyRerank. The
// reranker's output is the actual result order for this stage; it is not
// discarded by a later re-sort.
func (p *Pipeline) applyRerank(ctx context.Context, query string, candidates []types.Candidate, emit func(types.Event)) []types.Candidate {
	emit(types.Event{Type: types.EventToolCall, Stage: types.StageRanking, Tool: "cross_encoder_rerank", Message: "calling reranker"})

	n := p.cfg.KRerank
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	top := candidates[:n]

	rcs := make([]rerank.Candidate, 0, len(top))
	for _, c := range top {
		text := ""
		if len(c.Evidence) > 0 {
			text = c.Evidence[0].Snippet
		}
		rcs = append(rcs, rerank.Candidate{ResumeID: c.ResumeID, Text: text})
	}

	results, err := p.reranker.Rerank(ctx, query, rcs)
	if err != nil {
		logger.Warn().Err(err).Msg("agentic: reranker call failed, ranking without it")
		emit(types.Event{Type: types.EventToolResult, Stage: types.StageRanking, Tool: "cross_encoder_rerank", Message: "reranker unavailable, degrading gracefully"})
		return candidates
	}

	ceScore := make(map[string]float64, len(results))
	for _, r := range results {
		ceScore[r.ResumeID] = r.Score
	}
	sort.SliceStable(top, func(i, j int) bool {
		return ceScore[top[i].ResumeID] > ceScore[top[j].ResumeID]
	})

	emit(types.Event{Type: types.EventToolResult, Stage: types.StageRanking, Tool: "cross_encoder_rerank", Message: formatCount("candidates reranked", len(results))})
	return candidates
}

func (p *Pipeline) stageAssembly(ctx context.Context, mission types.MissionSpec, candidates []types.Candidate, quality types.MatchQuality, emit func(types.Event)) {
	start := time.Now()
	emit(types.Event{Type: types.EventAgentStart, Stage: types.StageAssembly, Agent: "Assembly", Message: "assembling final shortlist"})

	result := types.ShortlistResult{
		Candidates:   candidates,
		MatchQuality: quality,
		MissionSpec:  mission,
	}

	emit(types.Event{Type: types.EventStageComplete, Stage: types.StageAssembly, TimingMS: time.Since(start).Milliseconds(),
		Message: "shortlist assembled"})
	emit(types.Event{Type: types.EventResult, Result: &result})
}

func formatCount(label string, n int) string {
	return label + ": " + strconv.Itoa(n)
}

func joinSkills(skills []string) string {
	if len(skills) == 0 {
		return ""
	}
	out := skills[0]
	for _, s := range skills[1:] {
		out += ", " + s
	}
	return out
}
