// Package app wires the pieces of the tsquery binary together: logger,
// factory registry, query file loading, planning and the optional
// result sink.
package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All factory modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// loggerContext embeds the app logger into a context for the planner
// and executors.
func (a *App) loggerContext(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
