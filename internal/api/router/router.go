// Package router registers the search engine's hertz routes, following
// the teacher's RegisterRoutes shape (internal/api/router/router.go).
package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/api/handler"
)

// RegisterRoutes wires the classic search, agentic shortlist, and
// single-resume endpoints under /api/v1.
func RegisterRoutes(h *server.Hertz, search *handler.SearchHandler, shortlist *handler.ShortlistHandler, resume *handler.ResumeHandler) {
	api := h.Group("/api/v1")

	api.POST("/search", func(c context.Context, ctx *app.RequestContext) {
		search.HandleSearch(c, ctx)
	})
	api.POST("/shortlist", func(c context.Context, ctx *app.RequestContext) {
		shortlist.HandleShortlist(c, ctx)
	})
	api.GET("/resume/:id", func(c context.Context, ctx *app.RequestContext) {
		resume.HandleGetResume(c, ctx)
	})
	api.DELETE("/resume/:id", func(c context.Context, ctx *app.RequestContext) {
		resume.HandleDeleteResume(c, ctx)
	})

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
