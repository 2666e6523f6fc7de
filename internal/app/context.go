package app

import (
	"context"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
	"github.com/vk/tsquery/internal/query/plan"
	"github.com/vk/tsquery/internal/registry"
)

// pipelineContext is the app's exec.PipelineContext: one query, one
// registry.
type pipelineContext struct {
	query    *query.TimeSeriesQuery
	registry *registry.Registry
}

func (c *pipelineContext) Query() *query.TimeSeriesQuery { return c.query }

func (c *pipelineContext) Registry() exec.FactorySource { return c.registry }

// contextSink is the pass-through executor all results stream into. In
// this binary it only reports what the pipeline delivers; transport to
// the actual consumer is layered on top.
type contextSink struct {
	cfg query.NodeConfig
}

func newContextSink() *contextSink {
	return &contextSink{cfg: &plan.ContextNodeConfig{}}
}

// Config implements exec.Node.
func (s *contextSink) Config() query.NodeConfig { return s.cfg }

// Initialize implements exec.Node.
func (s *contextSink) Initialize(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Context sink ready.")
	return nil
}
