// Package handler holds the hertz request handlers for the search
// engine's HTTP surface, following the teacher's handler package shape
// (internal/api/handler/job_search_handler.go): one struct per concern,
// wired with its dependencies in the constructor, JSON responses via
// app.RequestContext.
package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/apierr"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/orchestrator"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/storage"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// SearchHandler serves the classic query path (C8): an explicit skill
// list in, a cached/ranked shortlist out.
type SearchHandler struct {
	orc   *orchestrator.Orchestrator
	core  orchestrator.CoreStore // optional; nil skips headline/YOE/location enrichment
	cache *storage.Redis         // optional; nil disables caching
}

func NewSearchHandler(orc *orchestrator.Orchestrator, core orchestrator.CoreStore, cache *storage.Redis) *SearchHandler {
	return &SearchHandler{orc: orc, core: core, cache: cache}
}

// searchRequest is the classic /search request body (spec §6.1).
type searchRequest struct {
	Skills          []string `json:"skills"`
	Mode            string   `json:"mode"`
	MinMatch        int      `json:"minMatch"`
	MinYOE          int      `json:"minYOE,omitempty"`
	LocationCountry string   `json:"locationCountry,omitempty"`
	Limit           int      `json:"limit"`
	EnableRerank    bool     `json:"enableRerank,omitempty"`
}

// candidateOut is a ranked candidate enriched with resume core display
// fields (headline, YOE, location) per spec §4.8 step 7.
type candidateOut struct {
	types.Candidate
	Headline        string  `json:"headline,omitempty"`
	YearsExperience float64 `json:"yearsExperience,omitempty"`
	Location        string  `json:"location,omitempty"`
}

type searchMeta struct {
	Query           string            `json:"query"`
	TotalCandidates int               `json:"totalCandidates"`
	ResultsReturned int               `json:"resultsReturned"`
	LatencyMS       int64             `json:"latencyMs"`
	HybridStats     types.HybridStats `json:"hybridStats"`
}

type searchResponse struct {
	Results []candidateOut `json:"results"`
	Meta    searchMeta     `json:"meta"`
}

// HandleSearch serves POST /api/v1/search.
func (h *SearchHandler) HandleSearch(ctx context.Context, c *app.RequestContext) {
	start := time.Now()
	var req searchRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}
	if len(req.Skills) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "skills is required"})
		return
	}

	cacheKey := cacheKeyFor(req)
	var result *types.ShortlistResult
	if h.cache != nil {
		if cached, err := h.cache.GetCachedShortlist(ctx, cacheKey); err == nil && cached != nil {
			result = cached
		}
	}

	if result == nil {
		var err error
		result, err = h.orc.Query(ctx, orchestrator.QueryRequest{
			Skills:          req.Skills,
			Mode:            ledger.GateMode(req.Mode),
			MinMatch:        req.MinMatch,
			MinYOE:          req.MinYOE,
			LocationCountry: req.LocationCountry,
			Limit:           req.Limit,
			EnableRerank:    req.EnableRerank,
		})
		if err != nil {
			writeErr(c, err)
			return
		}
		if h.cache != nil {
			if err := h.cache.CacheShortlist(ctx, cacheKey, result); err != nil {
				logger.Warn().Err(err).Msg("search: cache write failed")
			}
		}
	}

	c.JSON(consts.StatusOK, h.buildResponse(ctx, req, result, time.Since(start)))
}

// buildResponse joins resume core for display enrichment and wraps the
// shortlist in the §6.1 {results, meta} envelope.
func (h *SearchHandler) buildResponse(ctx context.Context, req searchRequest, result *types.ShortlistResult, latency time.Duration) searchResponse {
	var core map[string]orchestrator.ResumeCoreInfo
	if h.core != nil && len(result.Candidates) > 0 {
		ids := make([]string, len(result.Candidates))
		for i, cand := range result.Candidates {
			ids[i] = cand.ResumeID
		}
		m, err := h.core.CoreFor(ctx, ids)
		if err != nil {
			logger.Warn().Err(err).Msg("search: core enrichment lookup failed")
		} else {
			core = m
		}
	}

	outs := make([]candidateOut, len(result.Candidates))
	for i, cand := range result.Candidates {
		out := candidateOut{Candidate: cand}
		if info, ok := core[cand.ResumeID]; ok {
			out.Headline = info.Headline
			out.YearsExperience = info.YearsExperience
			out.Location = info.Location
		}
		outs[i] = out
	}

	stats := types.HybridStats{}
	if result.HybridStats != nil {
		stats = *result.HybridStats
	}

	return searchResponse{
		Results: outs,
		Meta: searchMeta{
			Query:           strings.Join(req.Skills, ", "),
			TotalCandidates: len(result.Candidates),
			ResultsReturned: len(outs),
			LatencyMS:       latency.Milliseconds(),
			HybridStats:     stats,
		},
	}
}

// cacheKeyFor builds a stable cache key from every field that affects the
// result set, independent of the caller's skill ordering.
func cacheKeyFor(req searchRequest) string {
	sorted := append([]string{}, req.Skills...)
	sort.Strings(sorted)
	return fmt.Sprintf("skills:%s|mode:%s|minMatch:%d|minYOE:%d|loc:%s|limit:%d|rerank:%t",
		strings.Join(sorted, ","), req.Mode, req.MinMatch, req.MinYOE, strings.ToLower(req.LocationCountry), req.Limit, req.EnableRerank)
}

func writeErr(c *app.RequestContext, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "internal error"})
		return
	}
	switch apiErr.Kind {
	case apierr.KindInvalidQuery:
		c.JSON(consts.StatusBadRequest, utils.H{"error": apiErr.Msg})
	case apierr.KindNotFound:
		c.JSON(consts.StatusNotFound, utils.H{"error": apiErr.Msg})
	case apierr.KindUpstreamUnavailable:
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": apiErr.Msg})
	default:
		c.JSON(consts.StatusInternalServerError, utils.H{"error": apiErr.Msg})
	}
}
