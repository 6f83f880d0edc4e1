package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/kbukum/portalgpt/logger"
)

// App carries a typed config through the lifecycle.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	Summary *Summary

	gracefulTimeout time.Duration
	signals         bool

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults, validates cfg and initializes logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := &appOptions{gracefulTimeout: 15 * time.Second, signals: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		logger.Init(base.Logging)
		o.logger = logger.GetGlobalLogger()
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          o.logger,
		Summary:         NewSummary(base.Name, base.Version),
		gracefulTimeout: o.gracefulTimeout,
		signals:         o.signals,
	}, nil
}

// Run starts the app and blocks until a shutdown signal or ctx ends, then
// stops it.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return errors.Join(err, a.stop())
	}

	ctx, cancel := a.signalContext(ctx)
	defer cancel()
	a.Logger.Info("Application ready, waiting for shutdown signal")
	<-ctx.Done()
	a.Logger.Info("Shutdown requested")

	return a.stop()
}

// RunTask starts the app, runs task with a context canceled on SIGINT or
// SIGTERM, then stops. The task's error wins over a stop error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return errors.Join(err, a.stop())
	}

	taskCtx, cancel := a.signalContext(ctx)
	taskErr := task(taskCtx)
	cancel()

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if !a.signals {
		return context.WithCancel(ctx)
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := runHooks(ctx, "start", a.onStart); err != nil {
		return err
	}
	if err := runHooks(ctx, "ready", a.onReady); err != nil {
		return err
	}
	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Log(a.Logger)
	return nil
}

// stop runs every stop hook, newest first, even when one fails.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	for _, h := range slices.Backward(a.onStop) {
		if err := h(ctx); err != nil {
			a.Logger.Error("Stop hook failed", logger.Fields(logger.FieldError, err.Error()))
			errs = append(errs, err)
		}
	}
	a.Logger.Debug("Application shutdown complete")
	return errors.Join(errs...)
}
