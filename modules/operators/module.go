// Package operators provides factories for the built-in shaping
// operators: rate, downsample, groupby, filter and expression. They
// share one executor shape; the interesting work happens in the data
// source once the planner pushes them down.
package operators

import (
	"context"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
	"github.com/vk/tsquery/internal/registry"
)

// Types lists the operator types this package registers factories for.
var Types = []string{"rate", "downsample", "groupby", "filter", "expression"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers one factory per operator type.
func (m *Module) Register(r *registry.Registry) {
	for _, typ := range Types {
		r.Register(typ, &Factory{typ: typ})
	}
}

// Factory builds executors for a single operator type.
type Factory struct {
	typ string
}

// SetupGraph implements exec.Factory. The built-in operators take the
// graph as submitted.
func (f *Factory) SetupGraph(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner exec.Planner) error {
	return nil
}

// SupportsPushdown implements exec.Factory. Operators are push-down
// candidates, never targets.
func (f *Factory) SupportsPushdown(cfg query.NodeConfig) bool {
	return false
}

// NewNode implements exec.Factory.
func (f *Factory) NewNode(ctx context.Context, pctx exec.PipelineContext, cfg query.NodeConfig) exec.Node {
	return &Node{cfg: cfg, typ: f.typ}
}

// Node is a materialized shaping operator.
type Node struct {
	cfg query.NodeConfig
	typ string
}

// Config implements exec.Node.
func (n *Node) Config() query.NodeConfig { return n.cfg }

// Initialize implements exec.Node.
func (n *Node) Initialize(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Operator initialized.", "id", n.cfg.ID(), "type", n.typ)
	return nil
}
