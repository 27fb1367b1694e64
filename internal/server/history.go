package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/council/internal/search"
	"github.com/mohammad-safakhou/council/internal/store"
)

// HistoryStore is the read side the history endpoints need; satisfied by
// *store.Store.
type HistoryStore interface {
	ListDecisions(ctx context.Context, skip, limit int) ([]store.DecisionSummary, error)
	GetDecision(ctx context.Context, id string) (store.Decision, bool, error)
}

// HistoryHandler serves past debates.
type HistoryHandler struct {
	Store HistoryStore
	Index *search.Index
}

func (h *HistoryHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
}

func (h *HistoryHandler) list(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	decisions, err := h.Store.ListDecisions(c.Request().Context(), skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, decisions)
}

func (h *HistoryHandler) get(c echo.Context) error {
	id := c.Param("id")
	decision, found, err := h.Store.GetDecision(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "decision not found")
	}
	return c.JSON(http.StatusOK, decision)
}

func (h *HistoryHandler) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	if h.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search disabled")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	hits, err := h.Index.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hits)
}
