package plan

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vk/tsquery/internal/graph"
	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
)

// Planner turns the logical execution graph of a query into a physical
// executor graph ready to stream to the context sink. A Planner is
// single use: construct, call Plan once, then read the artifacts.
//
// The configuration graph is mutated freely while Plan runs, both by
// the planner itself and by factories through the mutator surface.
// After Plan returns it is frozen by convention; callers may inspect
// but must not mutate.
type Planner struct {
	pctx        exec.PipelineContext
	contextSink exec.Node

	// contextNode is the synthetic root of the config graph.
	contextNode query.NodeConfig

	// sinkFilter maps node ids from serdes filters to their optional
	// source hint ("" when the filter had no hint).
	sinkFilter map[string]string

	// satisfiedFilters collects sink filter keys that matched a node
	// during setup.
	satisfiedFilters mapset.Set[string]

	// roots are predecessor-less nodes observed during setup that were
	// not auto-wired to the context node because sink filters exist.
	roots []query.NodeConfig

	// sourceNodes tracks the data source configs currently present in
	// the config graph.
	sourceNodes map[query.NodeConfig]struct{}

	configGraph *graph.Directed[query.NodeConfig]
	execGraph   *graph.Directed[exec.Node]

	// nodesMap indexes built executors by config id.
	nodesMap map[string]exec.Node

	// dataSources lists data source executors in order of construction.
	dataSources []exec.DataSource

	serializationSources mapset.Set[string]

	factoryCache map[string]exec.Factory
	planned      bool
}

// New creates a planner for the pipeline context. The context sink is
// the pre-created executor all results flow into.
func New(pctx exec.PipelineContext, contextSink exec.Node) *Planner {
	return &Planner{
		pctx:             pctx,
		contextSink:      contextSink,
		contextNode:      &ContextNodeConfig{},
		sinkFilter:       make(map[string]string),
		satisfiedFilters: mapset.NewThreadUnsafeSet[string](),
		sourceNodes:      make(map[query.NodeConfig]struct{}),
		configGraph:      graph.New[query.NodeConfig](),
		execGraph:        graph.New[exec.Node](),
		nodesMap:         make(map[string]exec.Node),
		factoryCache:     make(map[string]exec.Factory),
	}
}

// Context returns the pipeline context the planner was built with.
func (p *Planner) Context() exec.PipelineContext { return p.pctx }

// Graph returns the executor graph. Empty until Plan resolves.
func (p *Planner) Graph() *graph.Directed[exec.Node] { return p.execGraph }

// ConfigGraph returns the live configuration graph.
func (p *Planner) ConfigGraph() *graph.Directed[query.NodeConfig] { return p.configGraph }

// ContextNode returns the synthetic root config of the config graph.
func (p *Planner) ContextNode() query.NodeConfig { return p.contextNode }

// Sources returns the data source executors in construction order.
func (p *Planner) Sources() []exec.DataSource { return p.dataSources }

// SerializationSources returns the result ids the sink should expect.
// Nil before Plan resolves.
func (p *Planner) SerializationSources() mapset.Set[string] { return p.serializationSources }

// NodeForID returns the executor built for the config id, or nil.
func (p *Planner) NodeForID(id string) exec.Node { return p.nodesMap[id] }

// AddEdge inserts the edge from -> to into the config graph, reporting
// whether it was newly added. Data source endpoints are recorded in the
// source set. When the edge would close a cycle it is rolled back and a
// CycleError returned. Implements exec.Planner.
func (p *Planner) AddEdge(from, to query.NodeConfig) (bool, error) {
	added, err := p.configGraph.PutEdge(from, to)
	if err != nil {
		return false, err
	}
	if p.configGraph.HasCycle() {
		// A brand new edge is the only thing that can have closed the
		// cycle, so removing it restores the previous state.
		if added {
			p.configGraph.RemoveEdge(from, to)
		}
		return false, &CycleError{From: from.ID(), To: to.ID()}
	}
	if isDataSource(from) {
		p.sourceNodes[from] = struct{}{}
	}
	if isDataSource(to) {
		p.sourceNodes[to] = struct{}{}
	}
	return added, nil
}

// RemoveEdge removes the edge from -> to. Endpoints left with no edges
// at all are dropped from the graph and the source set. Implements
// exec.Planner.
func (p *Planner) RemoveEdge(from, to query.NodeConfig) bool {
	if !p.configGraph.RemoveEdge(from, to) {
		return false
	}
	for _, n := range [...]query.NodeConfig{from, to} {
		if in, out := p.configGraph.Degree(n); in == 0 && out == 0 {
			p.configGraph.RemoveNode(n)
			delete(p.sourceNodes, n)
		}
	}
	return true
}

// RemoveNode drops a node and all incident edges. Implements
// exec.Planner.
func (p *Planner) RemoveNode(cfg query.NodeConfig) bool {
	if !p.configGraph.RemoveNode(cfg) {
		return false
	}
	delete(p.sourceNodes, cfg)
	return true
}

// Replace atomically swaps oldCfg for newCfg, reattaching every
// neighbor edge with its original orientation. A CycleError during
// reattachment leaves the planner in an unrecoverable state.
// Implements exec.Planner.
func (p *Planner) Replace(oldCfg, newCfg query.NodeConfig) error {
	upstream := p.configGraph.Predecessors(oldCfg)
	for _, n := range upstream {
		p.configGraph.RemoveEdge(n, oldCfg)
	}

	downstream := p.configGraph.Successors(oldCfg)
	for _, n := range downstream {
		p.configGraph.RemoveEdge(oldCfg, n)
	}

	p.configGraph.RemoveNode(oldCfg)
	p.configGraph.AddNode(newCfg)

	if isDataSource(oldCfg) {
		delete(p.sourceNodes, oldCfg)
	}
	if isDataSource(newCfg) {
		p.sourceNodes[newCfg] = struct{}{}
	}

	for _, up := range upstream {
		if _, err := p.configGraph.PutEdge(up, newCfg); err != nil {
			return err
		}
		if p.configGraph.HasCycle() {
			return &CycleError{From: up.ID(), To: newCfg.ID()}
		}
	}
	for _, down := range downstream {
		if _, err := p.configGraph.PutEdge(newCfg, down); err != nil {
			return err
		}
		if p.configGraph.HasCycle() {
			return &CycleError{From: newCfg.ID(), To: down.ID()}
		}
	}
	return nil
}

// orderedSourceNodes returns the current data source configs in config
// graph insertion order, keeping every traversal deterministic.
func (p *Planner) orderedSourceNodes() []query.NodeConfig {
	out := make([]query.NodeConfig, 0, len(p.sourceNodes))
	for _, n := range p.configGraph.Nodes() {
		if _, ok := p.sourceNodes[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// rebuildSourceNodes rescans the config graph after setup, picking up
// sources that factories introduced or removed.
func (p *Planner) rebuildSourceNodes() {
	p.sourceNodes = make(map[query.NodeConfig]struct{})
	for _, n := range p.configGraph.Nodes() {
		if isDataSource(n) {
			p.sourceNodes[n] = struct{}{}
		}
	}
}

// factoryKey derives the registry key for a config: the source id for
// data sources, otherwise the type, falling back to the node id.
func factoryKey(cfg query.NodeConfig) string {
	if ds, ok := cfg.(query.DataSourceConfig); ok {
		return strings.ToLower(ds.SourceID())
	}
	if cfg.Type() != "" {
		return strings.ToLower(cfg.Type())
	}
	return strings.ToLower(cfg.ID())
}

// getFactory resolves a factory through the per-plan cache.
func (p *Planner) getFactory(key string) exec.Factory {
	if f, ok := p.factoryCache[key]; ok {
		return f
	}
	f := p.pctx.Registry().QueryNodeFactory(key)
	if f != nil {
		p.factoryCache[key] = f
	}
	return f
}

func isDataSource(cfg query.NodeConfig) bool {
	_, ok := cfg.(query.DataSourceConfig)
	return ok
}

func (p *Planner) isContextNode(cfg query.NodeConfig) bool {
	return cfg == p.contextNode
}

// DescribeConfigGraph renders the config graph for debug logs.
func (p *Planner) DescribeConfigGraph() string {
	var b strings.Builder
	for _, n := range p.configGraph.Nodes() {
		fmt.Fprintf(&b, "[V] %s (%T)\n", n.ID(), n)
	}
	for _, n := range p.configGraph.Nodes() {
		for _, succ := range p.configGraph.Successors(n) {
			fmt.Fprintf(&b, "[E] %s => %s\n", n.ID(), succ.ID())
		}
	}
	return b.String()
}
