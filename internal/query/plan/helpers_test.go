package plan

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
	"github.com/vk/tsquery/internal/registry"
)

// recorder captures executor initialization order across goroutines.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
}

func (r *recorder) indexOf(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// testNode is a minimal executor recording its initializations.
type testNode struct {
	cfg       query.NodeConfig
	rec       *recorder
	mu        sync.Mutex
	initCount int
}

func (n *testNode) Config() query.NodeConfig { return n.cfg }

func (n *testNode) Initialize(ctx context.Context) error {
	n.mu.Lock()
	n.initCount++
	n.mu.Unlock()
	if n.rec != nil {
		n.rec.record(n.cfg.ID())
	}
	return nil
}

func (n *testNode) initialized() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.initCount
}

// testSourceNode is a testNode that also satisfies exec.DataSource.
type testSourceNode struct {
	testNode
}

func (n *testSourceNode) SourceConfig() query.DataSourceConfig {
	return n.cfg.(query.DataSourceConfig)
}

// testFactory is a configurable exec.Factory for planner tests.
type testFactory struct {
	// supports lists the lowercase operator types the factory's data
	// sources can absorb.
	supports map[string]bool
	// setup, when set, replaces the default no-op SetupGraph.
	setup func(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner exec.Planner) error
	// newNode, when set, replaces the default executor construction.
	newNode func(cfg query.NodeConfig) exec.Node
	rec     *recorder
}

func (f *testFactory) SetupGraph(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner exec.Planner) error {
	if f.setup != nil {
		return f.setup(ctx, q, cfg, planner)
	}
	return nil
}

func (f *testFactory) SupportsPushdown(cfg query.NodeConfig) bool {
	return f.supports[strings.ToLower(cfg.Type())]
}

func (f *testFactory) NewNode(ctx context.Context, pctx exec.PipelineContext, cfg query.NodeConfig) exec.Node {
	if f.newNode != nil {
		return f.newNode(cfg)
	}
	if _, ok := cfg.(query.DataSourceConfig); ok {
		return &testSourceNode{testNode{cfg: cfg, rec: f.rec}}
	}
	return &testNode{cfg: cfg, rec: f.rec}
}

// testContext is a one-query exec.PipelineContext.
type testContext struct {
	q   *query.TimeSeriesQuery
	reg *registry.Registry
}

func (c *testContext) Query() *query.TimeSeriesQuery { return c.q }

func (c *testContext) Registry() exec.FactorySource { return c.reg }

// newTestPlanner builds a planner over the query with a recording
// context sink.
func newTestPlanner(q *query.TimeSeriesQuery, reg *registry.Registry, rec *recorder) (*Planner, *testNode) {
	sink := &testNode{cfg: &ContextNodeConfig{}, rec: rec}
	return New(&testContext{q: q, reg: reg}, sink), sink
}

// registerTypes registers the factory under every given key.
func registerTypes(reg *registry.Registry, f exec.Factory, keys ...string) {
	for _, k := range keys {
		reg.Register(k, f)
	}
}

func sortedSources(p *Planner) []string {
	out := p.SerializationSources().ToSlice()
	sort.Strings(out)
	return out
}
