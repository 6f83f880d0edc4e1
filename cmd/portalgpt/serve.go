package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kbukum/portalgpt/api"
	"github.com/kbukum/portalgpt/auth"
	"github.com/kbukum/portalgpt/auth/jwt"
	"github.com/kbukum/portalgpt/bootstrap"
	"github.com/kbukum/portalgpt/llm"
	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/observability"
	"github.com/kbukum/portalgpt/resilience"
	"github.com/kbukum/portalgpt/server"
	"github.com/kbukum/portalgpt/server/middleware"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the completion API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(ctx context.Context, flags *rootFlags) error {
	rt, err := loadRuntime(flags, true)
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(rt.cfg)
	if err != nil {
		return err
	}
	cfg := app.Cfg

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, observability.Identity{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	app.OnStop(shutdownTelemetry)

	if err := rt.initMetrics(); err != nil {
		return err
	}
	orch, err := rt.buildOrchestrator()
	if err != nil {
		return err
	}
	srv, err := buildServer(rt, orch)
	if err != nil {
		return err
	}

	app.OnStart(srv.Start)
	app.OnStop(srv.Stop)

	app.Summary.Set("addr", srv.Addr())
	app.Summary.Set("backends", fmt.Sprint(orch.Backends()))
	app.Summary.Set("endpoints", fmt.Sprint(rt.endpoints.Names()))
	app.Summary.Set("auth", cfg.Auth.Describe())

	return app.Run(ctx)
}

// buildServer assembles the HTTP surface: the standard middleware stack,
// health and version endpoints, and the completion route guarded by the
// optional auth and rate limit.
func buildServer(rt *runtime, orch *llm.Orchestrator) (*server.Server, error) {
	cfg := rt.cfg
	srv := server.New(cfg.Server, logger.Get("server"))
	srv.ApplyMiddleware(rt.metrics)
	srv.RegisterDefaultEndpoints(cfg.Name, orch.Availability)

	var routeMW []gin.HandlerFunc
	if cfg.Auth.Enabled {
		tokens, err := jwt.NewService(cfg.Auth.JWT)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		routeMW = append(routeMW, middleware.Auth(middleware.AuthConfig{
			Validator: auth.NewValidator(tokens.ValidatorFunc()),
			SkipPaths: cfg.Auth.SkipPaths,
		}))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "completions",
			Rate:  cfg.Server.RateLimit,
			Burst: max(1, int(cfg.Server.RateLimit)),
		})
		routeMW = append(routeMW, middleware.RateLimit(limiter))
	}

	api.NewCompletionHandler(orch, cfg.Server.MaxConcurrent, logger.Get("api")).Register(srv.Engine(), routeMW...)
	return srv, nil
}
