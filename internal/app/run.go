package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/tsquery/internal/query/plan"
	"github.com/vk/tsquery/internal/queryfile"
	"github.com/vk/tsquery/internal/sink/socketio"
)

// Run executes the main application logic: load the query file, plan
// it, report the physical graph and optionally emit the plan metadata.
func (a *App) Run(ctx context.Context) error {
	ctx = a.loggerContext(ctx)
	a.logger.Debug("App.Run method started.")

	q, err := queryfile.Load(ctx, a.config.QueryPath)
	if err != nil {
		return fmt.Errorf("failed to load query file: %w", err)
	}

	pctx := &pipelineContext{query: q, registry: a.registry}
	sink := newContextSink()
	planner := plan.New(pctx, sink)

	a.logger.Info("Planning query...", "query", a.config.QueryPath, "factories", a.registry.Keys())
	if err := planner.Plan(ctx); err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	serialization := planner.SerializationSources().ToSlice()
	sort.Strings(serialization)

	sources := make([]string, 0, len(planner.Sources()))
	for _, ds := range planner.Sources() {
		sources = append(sources, ds.SourceConfig().ID())
	}

	a.logger.Info("🚀 Plan ready.",
		"executors", planner.Graph().Len(),
		"data_sources", sources,
		"serialization_sources", serialization,
	)

	if a.config.EmitURL != "" {
		emitter := socketio.New(socketio.Config{
			URL:     a.config.EmitURL,
			Timeout: a.config.EmitTimeout,
		})
		payload := map[string]any{
			"serialization_sources": serialization,
			"data_sources":          sources,
			"executor_count":        planner.Graph().Len(),
		}
		if err := emitter.Emit(ctx, payload); err != nil {
			return fmt.Errorf("failed to emit plan: %w", err)
		}
		a.logger.Info("🏁 Plan emitted.", "url", a.config.EmitURL)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
