// Package orchestrator implements the classic query pipeline (C8): an
// explicit skill list in, a ranked shortlist out, no LLM involved. It
// fork-joins the C4/C5 retrieval legs the way the teacher's
// job_search_handler.go runs its own multi-step pipeline sequentially, but
// with real parallelism since neither leg depends on the other's result.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/apierr"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/rerank"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/retrieval"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/skills"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/storage/models"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// Config tunes the classic pipeline's gating/pooling/reranking behavior.
type Config struct {
	KPool         int
	KSparse       int
	KDense        int
	LegTimeout    time.Duration
	Limit         int
	RerankMaxPool int
}

func DefaultConfig() Config {
	return Config{
		KPool:         500,
		KSparse:       300,
		KDense:        300,
		LegTimeout:    2 * time.Second,
		Limit:         50,
		RerankMaxPool: 100,
	}
}

// QueryRequest is the classic /search request (spec §6.1): a flat skill
// list gated by mode/minMatch, plus optional core-profile filters and
// reranking.
type QueryRequest struct {
	Skills          []string
	Mode            ledger.GateMode // "match_all" | "match_at_least"; defaults to match_all
	MinMatch        int
	MinYOE          int
	LocationCountry string
	Limit           int
	EnableRerank    bool
}

// ResumeCoreInfo is the subset of resumes_core used for optional filtering
// and response enrichment (spec §4.8 steps 3 and 7).
type ResumeCoreInfo struct {
	Headline        string
	YearsExperience float64
	Location        string
}

// CoreStore is the narrow resumes_core accessor the classic orchestrator
// needs. Kept as an interface, separate from GormCoreStore, so Query can
// be exercised in tests without a database; a nil CoreStore simply skips
// the optional filter/enrichment steps.
type CoreStore interface {
	// FilterByYOEAndLocation narrows candidateIDs (nil meaning "all
	// resumes") to those meeting minYOE and whose location contains
	// locationCountry (case-insensitive substring). A zero minYOE and
	// empty locationCountry are a no-op that returns candidateIDs as-is.
	FilterByYOEAndLocation(ctx context.Context, candidateIDs []string, minYOE int, locationCountry string) ([]string, error)
	// CoreFor fetches display fields for enrichment, keyed by resumeID.
	CoreFor(ctx context.Context, resumeIDs []string) (map[string]ResumeCoreInfo, error)
}

// GormCoreStore is the production CoreStore, backed by resumes_core.
type GormCoreStore struct {
	db *gorm.DB
}

func NewGormCoreStore(db *gorm.DB) *GormCoreStore {
	return &GormCoreStore{db: db}
}

func (s *GormCoreStore) FilterByYOEAndLocation(ctx context.Context, candidateIDs []string, minYOE int, locationCountry string) ([]string, error) {
	if minYOE <= 0 && locationCountry == "" {
		return candidateIDs, nil
	}
	q := s.db.WithContext(ctx).Model(&models.ResumeCore{})
	if len(candidateIDs) > 0 {
		q = q.Where("resume_id IN ?", candidateIDs)
	}
	if minYOE > 0 {
		q = q.Where("years_experience >= ?", minYOE)
	}
	if locationCountry != "" {
		q = q.Where("LOWER(current_location) LIKE ?", "%"+strings.ToLower(locationCountry)+"%")
	}
	var ids []string
	if err := q.Pluck("resume_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("orchestrator: core filter: %w", err)
	}
	return ids, nil
}

func (s *GormCoreStore) CoreFor(ctx context.Context, resumeIDs []string) (map[string]ResumeCoreInfo, error) {
	if len(resumeIDs) == 0 {
		return nil, nil
	}
	var rows []models.ResumeCore
	if err := s.db.WithContext(ctx).Where("resume_id IN ?", resumeIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("orchestrator: core lookup: %w", err)
	}
	out := make(map[string]ResumeCoreInfo, len(rows))
	for _, r := range rows {
		var yoe float64
		if r.YearsExperience != nil {
			yoe = *r.YearsExperience
		}
		out[r.ResumeID] = ResumeCoreInfo{Headline: r.Headline(), YearsExperience: yoe, Location: r.CurrentLocation}
	}
	return out, nil
}

// Orchestrator wires the skill ledger, chunk store, C4/C5 retrievers,
// reranker, and core store into the classic query path.
type Orchestrator struct {
	store    chunkstore.Store
	led      ledger.Ledger
	lexical  *retrieval.LexicalRetriever
	dense    *retrieval.DenseRetriever
	reranker rerank.Reranker
	core     CoreStore
	evCfg    retrieval.EvidenceConfig
	cfg      Config
}

func New(store chunkstore.Store, led ledger.Ledger, lexical *retrieval.LexicalRetriever, dense *retrieval.DenseRetriever, reranker rerank.Reranker, core CoreStore, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:    store,
		led:      led,
		lexical:  lexical,
		dense:    dense,
		reranker: reranker,
		core:     core,
		evCfg:    retrieval.DefaultEvidenceConfig(),
		cfg:      cfg,
	}
}

// Query runs the classic shortlist pipeline for req. Unlike the agentic
// path, the classic pipeline is stateless and has no weak-match fallback
// (spec §4.8): the skill gate is authoritative, and an empty gated
// candidate set is a final, empty result, full stop (match_quality is
// agentic-only and is not reported here).
func (o *Orchestrator) Query(ctx context.Context, req QueryRequest) (*types.ShortlistResult, error) {
	skillSet := skills.NormalizeAll(req.Skills)
	if len(req.Skills) > 0 && len(skillSet) == 0 {
		return nil, apierr.InvalidQuery("skills must contain at least one valid skill after normalization", nil)
	}
	mode := req.Mode
	if mode == "" {
		mode = ledger.GateMatchAll
	}
	limit := req.Limit
	if limit <= 0 {
		limit = o.cfg.Limit
	}

	return o.run(ctx, skillSet, skillSet, mode, req.MinMatch, req, limit)
}

// run drives steps 1-7 of §4.8 for one pass: gateSkills (nil means no skill
// gate) selects the candidate pool via mode/minMatch, scoreSkills is the
// full set coverage/matchedSkills are computed against.
func (o *Orchestrator) run(ctx context.Context, scoreSkills, gateSkills []string, mode ledger.GateMode, minMatch int, req QueryRequest, limit int) (*types.ShortlistResult, error) {
	var candidateIDs []string
	filtered := len(gateSkills) > 0 || req.MinYOE > 0 || req.LocationCountry != ""

	if len(gateSkills) > 0 {
		var err error
		candidateIDs, err = ledger.Gate(ctx, o.led, gateSkills, mode, minMatch)
		if err != nil {
			return nil, err
		}
		if len(candidateIDs) == 0 {
			return emptyResult(scoreSkills, gateSkills, mode), nil
		}
	}

	if o.core != nil && (req.MinYOE > 0 || req.LocationCountry != "") {
		var err error
		candidateIDs, err = o.core.FilterByYOEAndLocation(ctx, candidateIDs, req.MinYOE, req.LocationCountry)
		if err != nil {
			return nil, err
		}
		if filtered && len(candidateIDs) == 0 {
			return emptyResult(scoreSkills, gateSkills, mode), nil
		}
	}

	queryText := joinSkills(scoreSkills)

	var sparse, dense []types.RetrievalHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, o.cfg.LegTimeout)
		defer cancel()
		hits, err := o.lexical.Search(legCtx, queryText, candidateIDs, o.cfg.KSparse)
		if err != nil {
			logger.Warn().Err(err).Msg("lexical leg failed, continuing with dense only")
			return nil
		}
		sparse = hits
		return nil
	})
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, o.cfg.LegTimeout)
		defer cancel()
		hits, err := o.dense.Search(legCtx, queryText, candidateIDs, o.cfg.KDense)
		if err != nil {
			logger.Warn().Err(err).Msg("dense leg failed, continuing with sparse only")
			return nil
		}
		dense = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := retrieval.Fuse(sparse, dense)
	fused = retrieval.SortAndCap(fused, o.cfg.KPool)

	packs, err := retrieval.BuildEvidence(ctx, o.store, fused, sparse, dense, o.evCfg)
	if err != nil {
		return nil, err
	}
	evidenceByID := make(map[string]types.EvidencePack, len(packs))
	for _, p := range packs {
		evidenceByID[p.ResumeID] = p
	}

	candidates := make([]types.Candidate, 0, len(fused))
	for _, f := range fused {
		matched, err := o.led.MatchedSkills(ctx, f.ResumeID, scoreSkills)
		if err != nil {
			return nil, err
		}
		score := retrieval.Score(len(matched), len(scoreSkills), f.RRFScore)
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
	if req.EnableRerank && o.reranker != nil && len(candidates) > 0 {
		candidates = o.applyRerank(ctx, queryText, candidates, limit)
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return &types.ShortlistResult{
		Candidates: candidates,
		MissionSpec: types.MissionSpec{
			MustHave:   gateSkills,
			NiceToHave: scoreSkills,
			GateMode:   string(mode),
		},
		HybridStats: &types.HybridStats{LexicalHits: len(sparse), VectorHits: len(dense)},
	}, nil
}

// applyRerank implements §4.8 step 6: expand to limit*2 (capped at
// RerankMaxPool), call the cross-encoder reranker with each candidate's
// concatenated evidence, reorder by rerankScore, then retruncate to limit.
func (o *Orchestrator) applyRerank(ctx context.Context, query string, candidates []types.Candidate, limit int) []types.Candidate {
	poolSize := limit * 2
	maxPool := o.cfg.RerankMaxPool
	if maxPool <= 0 {
		maxPool = 100
	}
	if poolSize <= 0 || poolSize > maxPool {
		poolSize = maxPool
	}
	if poolSize > len(candidates) {
		poolSize = len(candidates)
	}
	top := candidates[:poolSize]
	rest := candidates[poolSize:]

	rcs := make([]rerank.Candidate, 0, len(top))
	for _, c := range top {
		rcs = append(rcs, rerank.Candidate{ResumeID: c.ResumeID, Text: evidenceText(c.Evidence)})
	}

	results, err := o.reranker.Rerank(ctx, query, rcs)
	if err != nil {
		logger.Warn().Err(err).Msg("classic query: reranker call failed, keeping RRF order")
		return candidates
	}

	ceScore := make(map[string]float64, len(results))
	for _, r := range results {
		ceScore[r.ResumeID] = r.Score
	}
	sort.SliceStable(top, func(i, j int) bool {
		return ceScore[top[i].ResumeID] > ceScore[top[j].ResumeID]
	})

	reranked := append(top, rest...)
	if limit > 0 && len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked
}

func evidenceText(items []types.EvidenceItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(it.Snippet)
	}
	return b.String()
}

func emptyResult(scoreSkills, gateSkills []string, mode ledger.GateMode) *types.ShortlistResult {
	return &types.ShortlistResult{
		Candidates: nil,
		MissionSpec: types.MissionSpec{
			MustHave:   gateSkills,
			NiceToHave: scoreSkills,
			GateMode:   string(mode),
		},
		HybridStats: &types.HybridStats{},
	}
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
