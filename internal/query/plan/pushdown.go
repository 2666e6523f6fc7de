package plan

import (
	"context"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/graph"
	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
)

// runPushDowns folds eligible upstream operators into each data
// source. Sources gaining push-down nodes are replaced with a rebuilt
// config carrying the folded operators.
func (p *Planner) runPushDowns(ctx context.Context) error {
	for _, cfg := range p.orderedSourceNodes() {
		ds, ok := cfg.(query.DataSourceConfig)
		if !ok {
			continue
		}
		if err := p.pushDownForSource(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}

// pushDownForSource walks upward from one source collecting the maximal
// contiguous run of push-down capable operators. The walk enumerates
// predecessors from a snapshot so the live graph can be rewritten
// mid-traversal; appends happen nearest to the source first so the
// source applies the folded operators in dataflow order.
func (p *Planner) pushDownForSource(ctx context.Context, source query.DataSourceConfig) error {
	key := factoryKey(source)
	factory := p.getFactory(key)
	if factory == nil {
		return &NoFactoryError{Key: key}
	}

	snapshot := p.configGraph.Clone()
	var pushDowns []query.NodeConfig
	seen := make(map[query.NodeConfig]struct{})

	for _, pred := range snapshot.Predecessors(source) {
		pushed, err := p.pushDown(source, factory, pred, &pushDowns, seen, snapshot)
		if err != nil {
			return err
		}
		if pushed {
			p.configGraph.RemoveEdge(pred, source)
			p.pruneDetached(pred)
		}
	}

	if len(pushDowns) == 0 {
		return nil
	}

	rebuilt := source.ToBuilder().PushDownNodes(pushDowns).Build()
	if err := p.Replace(source, rebuilt); err != nil {
		return err
	}
	pushDownNodes.Add(float64(len(pushDowns)))
	ctxlog.FromContext(ctx).Debug("Plan: folded operators into source.",
		"source", source.ID(), "push_downs", len(pushDowns))
	return nil
}

// pushDown reports whether node can execute inside the source. Eligible
// nodes are appended to pushDowns and their upstream recursed; a
// non-eligible operator is re-pointed at the source so its results
// still reach it once the operators in between disappear.
func (p *Planner) pushDown(
	source query.DataSourceConfig,
	factory exec.Factory,
	node query.NodeConfig,
	pushDowns *[]query.NodeConfig,
	seen map[query.NodeConfig]struct{},
	snapshot *graph.Directed[query.NodeConfig],
) (bool, error) {
	if !factory.SupportsPushdown(node) || !node.PushDown() {
		if !p.configGraph.HasEdge(node, source) {
			if _, err := p.AddEdge(node, source); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if _, dup := seen[node]; dup {
		return true, nil
	}
	seen[node] = struct{}{}
	*pushDowns = append(*pushDowns, node)

	// See if we can walk up for more.
	for _, upstream := range snapshot.Predecessors(node) {
		pushed, err := p.pushDown(source, factory, upstream, pushDowns, seen, snapshot)
		if err != nil {
			return false, err
		}
		if pushed {
			p.configGraph.RemoveEdge(upstream, node)
			p.pruneDetached(upstream)
		}
	}
	return true, nil
}

// pruneDetached removes a folded operator once nothing consumes it
// anymore. Residual incident edges (the context wiring of a former
// root) vanish with it.
func (p *Planner) pruneDetached(node query.NodeConfig) {
	if p.isContextNode(node) {
		return
	}
	if _, out := p.configGraph.Degree(node); out == 0 {
		p.RemoveNode(node)
	}
}
