// Package memstore provides the in-memory time-series data source
// factory. It supports push-down of the stateless shaping operators so
// the planner can fold them into the source.
package memstore

import (
	"context"
	"strings"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
	"github.com/vk/tsquery/internal/registry"
)

// SourceID is the registry key of this factory.
const SourceID = "memstore"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the factory with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(SourceID, NewFactory())
}

// Factory builds memstore data source executors.
type Factory struct {
	pushdownTypes map[string]struct{}
}

// NewFactory creates the factory. The push-down set covers the
// operators the store can evaluate inline while scanning.
func NewFactory() *Factory {
	f := &Factory{pushdownTypes: make(map[string]struct{})}
	for _, typ := range []string{"rate", "downsample", "groupby", "filter"} {
		f.pushdownTypes[typ] = struct{}{}
	}
	return f
}

// SetupGraph implements exec.Factory. The memstore source needs no
// graph rewrites.
func (f *Factory) SetupGraph(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner exec.Planner) error {
	return nil
}

// SupportsPushdown implements exec.Factory.
func (f *Factory) SupportsPushdown(cfg query.NodeConfig) bool {
	_, ok := f.pushdownTypes[strings.ToLower(cfg.Type())]
	return ok
}

// NewNode implements exec.Factory.
func (f *Factory) NewNode(ctx context.Context, pctx exec.PipelineContext, cfg query.NodeConfig) exec.Node {
	ds, ok := cfg.(query.DataSourceConfig)
	if !ok {
		return nil
	}
	return &SourceNode{cfg: ds}
}

// SourceNode is a materialized memstore scan.
type SourceNode struct {
	cfg query.DataSourceConfig
}

// Config implements exec.Node.
func (n *SourceNode) Config() query.NodeConfig { return n.cfg }

// SourceConfig implements exec.DataSource.
func (n *SourceNode) SourceConfig() query.DataSourceConfig { return n.cfg }

// Initialize implements exec.Node.
func (n *SourceNode) Initialize(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Memstore source initialized.",
		"id", n.cfg.ID(), "push_downs", len(n.cfg.PushDownNodes()))
	return nil
}
