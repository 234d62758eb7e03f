package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/agentic"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/types"
)

// ShortlistHandler serves the agentic SSE query path (C9): a free-text job
// description in, a stream of stage-progress events out, ending in a
// result/done pair.
type ShortlistHandler struct {
	pipeline *agentic.Pipeline
}

func NewShortlistHandler(pipeline *agentic.Pipeline) *ShortlistHandler {
	return &ShortlistHandler{pipeline: pipeline}
}

type shortlistRequest struct {
	Query string `json:"query"`
}

// HandleShortlist serves POST /api/v1/shortlist, streaming Server-Sent
// Events for each pipeline stage as it completes.
func (h *ShortlistHandler) HandleShortlist(ctx context.Context, c *app.RequestContext) {
	var req shortlistRequest
	if err := c.BindJSON(&req); err != nil || req.Query == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "query is required"})
		return
	}

	c.Response.Header.Set("Content-Type", "text/event-stream")
	c.Response.Header.Set("Cache-Control", "no-cache")
	c.Response.Header.Set("Connection", "keep-alive")
	c.SetStatusCode(consts.StatusOK)

	pr, pw := io.Pipe()
	c.SetBodyStream(pr, -1)
	go func() {
		defer pw.Close()
		w := bufio.NewWriter(pw)
		h.pipeline.Run(ctx, req.Query, func(ev types.Event) {
			writeSSEEvent(w, ev)
			if err := w.Flush(); err != nil {
				logger.Warn().Err(err).Msg("shortlist: sse flush failed, client likely disconnected")
			}
		})
	}()
}

// writeSSEEvent encodes ev as a single `event: <type>\ndata: <json>\n\n`
// frame, the shape EventSource clients expect.
func writeSSEEvent(w *bufio.Writer, ev types.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error().Err(err).Msg("shortlist: marshal event failed")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}
