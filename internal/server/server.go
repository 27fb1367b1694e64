// Package server exposes the council engine over HTTP: the SSE debate
// endpoint, debate history, and the model catalog.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/mohammad-safakhou/council/config"
	"github.com/mohammad-safakhou/council/internal/catalog"
	"github.com/mohammad-safakhou/council/internal/council"
	"github.com/mohammad-safakhou/council/internal/provider"
	"github.com/mohammad-safakhou/council/internal/search"
	"github.com/mohammad-safakhou/council/internal/store"
	"github.com/mohammad-safakhou/council/internal/telemetry"
)

func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		baseLogger.Printf("migrate: %v", err)
	}

	ctx := context.Background()
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	gateway := provider.NewGatewayClient(cfg.Gateway)

	var tele *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tele = telemetry.New(prometheus.DefaultRegisterer)
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	engine := council.NewEngine(gateway, st, orchLogger, tele, council.Options{
		EventBuffer:          cfg.Council.EventBuffer,
		SynthesisTemperature: cfg.Gateway.SynthesisTemperature,
		Parser: council.ParserConfig{
			ConsensusMarker: cfg.Council.ConsensusMarker,
			DebatesMarker:   cfg.Council.DebatesMarker,
			SynthesisMarker: cfg.Council.SynthesisMarker,
			BulletPrefixes:  cfg.Council.BulletPrefixes,
		},
	})

	var idx *search.Index
	if cfg.Search.Enabled {
		idx, err = search.Open(cfg.Search.IndexPath)
		if err != nil {
			return err
		}
	}

	// redis is optional: without it the catalog just hits the gateway
	var rdb *redis.Client
	if addr := cfg.Storage.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", addr, err)
		}
	}
	cat := catalog.New(gateway, rdb, cfg.Storage.Redis.CacheTTL, nil)

	api := e.Group("/api")
	ch := &CouncilHandler{Engine: engine, Index: idx, Logger: baseLogger}
	ch.Register(api.Group("/council"))
	hh := &HistoryHandler{Store: st, Index: idx}
	hh.Register(api.Group("/history"))
	cfh := &ConfigHandler{Catalog: cat}
	cfh.Register(api.Group("/config"))

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8000"
	}
	if addr[0] != ':' {
		addr = ":" + addr
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
