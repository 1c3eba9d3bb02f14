// Package server wires configuration, storage, agents, and the scheduler
// behind the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/studypilot/studypilot/config"
	"github.com/studypilot/studypilot/internal/agent"
	"github.com/studypilot/studypilot/internal/orchestrator"
	"github.com/studypilot/studypilot/internal/scheduler"
	"github.com/studypilot/studypilot/internal/store"
	"github.com/studypilot/studypilot/internal/vector"
	"github.com/studypilot/studypilot/provider"
	"github.com/studypilot/studypilot/tools/websearch"
)

// Run assembles all dependencies from cfg and serves the API until the
// listener fails. Every dependency is built here and injected downward;
// nothing reaches for process-wide state.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = errorHandler(baseLogger)

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	index, err := vector.New(cfg.Vector, log.New(log.Writer(), "[VECTOR] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}

	llm, err := provider.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	searchers := websearch.NewProviders(cfg.Search)
	agentLogger := log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	agents := orchestrator.Agents{
		Planner:    agent.NewPlanner(llm, agentLogger),
		Researcher: agent.NewResearcher(llm, searchers, index, agentLogger),
		Curator:    agent.NewCurator(llm, agentLogger),
		Tutor:      agent.NewTutor(llm, agentLogger),
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := orchestrator.New(st, llm, agents, index, orchLogger)

	gh := &GoalsHandler{Orch: orch, Logger: baseLogger}
	gh.Register(e.Group("/api"))

	// Scheduler with redis locks; optional, the API works without it.
	if cfg.Scheduler.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		sched := scheduler.New(st, orch, rdb, cfg.Scheduler, log.New(log.Writer(), "[SCHED] ", log.LstdFlags))
		sched.Start()
		defer sched.Stop()
	}

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// errorHandler maps domain sentinel errors onto status codes and renders a
// uniform JSON error body.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()

		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		case errors.Is(err, store.ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, agent.ErrInvalidState):
			code = http.StatusConflict
		case errors.Is(err, provider.ErrUnavailable):
			code = http.StatusBadGateway
		}

		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
}
