package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/council/internal/council"
	"github.com/mohammad-safakhou/council/internal/search"
)

// DebateRunner is the engine surface the handler needs; satisfied by
// *council.Engine.
type DebateRunner interface {
	RunDebate(ctx context.Context, req council.DebateRequest) (<-chan council.Event, error)
}

// CouncilHandler streams debates over Server-Sent Events.
type CouncilHandler struct {
	Engine DebateRunner
	Index  *search.Index
	Logger *log.Logger
}

func (h *CouncilHandler) Register(g *echo.Group) {
	g.POST("/debate", h.debate)
}

// debate starts a council debate and relays engine events as SSE frames
// (`event: <tag>` + `data: <json>`). Validation failures are rejected with a
// plain 400 before any streaming begins; once the stream is open every
// outcome, success or failure, arrives as an event. Closing the connection
// cancels the debate.
func (h *CouncilHandler) debate(c echo.Context) error {
	var req council.DebateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	events, err := h.Engine.RunDebate(ctx, req)
	if err != nil {
		if errors.Is(err, council.ErrInvalidRequest) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			h.Logger.Printf("marshal %s event: %v", ev.Tag(), err)
			continue
		}
		if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Tag(), data); err != nil {
			// client went away; the request context cancellation
			// winds the engine down
			return nil
		}
		flusher.Flush()

		switch typed := ev.(type) {
		case council.DebateStart:
			c.Set("decision_id", typed.DecisionID)
		case council.SynthesisComplete:
			h.indexDecision(c, req.Query, typed.SynthesisText)
		}
	}
	return nil
}

func (h *CouncilHandler) indexDecision(c echo.Context, query, synthesis string) {
	if h.Index == nil {
		return
	}
	id, _ := c.Get("decision_id").(string)
	if id == "" {
		return
	}
	if err := h.Index.IndexDecision(id, query, synthesis); err != nil {
		h.Logger.Printf("index decision %s: %v", id, err)
	}
}
