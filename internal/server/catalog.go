package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/council/internal/provider"
)

// ModelCatalog is the catalog surface the config endpoints need; satisfied
// by *catalog.Service.
type ModelCatalog interface {
	Models(ctx context.Context) ([]provider.ModelInfo, error)
	TestModel(ctx context.Context, modelID string) bool
}

// ConfigHandler exposes the model catalog.
type ConfigHandler struct {
	Catalog ModelCatalog
}

func (h *ConfigHandler) Register(g *echo.Group) {
	g.GET("/models", h.models)
	g.POST("/test-model", h.testModel)
}

func (h *ConfigHandler) models(c echo.Context) error {
	models, err := h.Catalog.Models(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, models)
}

type testModelRequest struct {
	ModelID string `json:"model_id"`
}

type testModelResponse struct {
	ModelID   string `json:"model_id"`
	Available bool   `json:"available"`
}

func (h *ConfigHandler) testModel(c echo.Context) error {
	var req testModelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.ModelID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "model_id required")
	}
	return c.JSON(http.StatusOK, testModelResponse{
		ModelID:   req.ModelID,
		Available: h.Catalog.TestModel(c.Request().Context(), req.ModelID),
	})
}
