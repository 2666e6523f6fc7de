package plan

import (
	"context"
	"fmt"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/query"
)

// runSetup walks upward from every data source letting factories
// rewrite the graph. Factories observe each other's rewrites, so any
// mutation aborts the current pass and restarts from scratch; the loop
// terminates once a full traversal completes without mutation.
func (p *Planner) runSetup(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	alreadySetup := make(map[query.NodeConfig]struct{})
	passes := 0

	modified := true
	for modified {
		if len(p.sourceNodes) == 0 {
			break
		}
		passes++
		for _, node := range p.orderedSourceNodes() {
			var err error
			modified, err = p.recursiveSetup(ctx, node, alreadySetup)
			if err != nil {
				return err
			}
			if modified {
				break
			}
		}
	}
	logger.Debug("Plan: setup passes finished.", "passes", passes)
	return nil
}

// recursiveSetup visits node and then its predecessors, applying the
// rooting and filter logic and invoking the node's factory. It reports
// true as soon as a factory mutates the config graph so the caller can
// restart.
func (p *Planner) recursiveSetup(ctx context.Context, node query.NodeConfig, alreadySetup map[query.NodeConfig]struct{}) (bool, error) {
	if _, done := alreadySetup[node]; !done && !p.isContextNode(node) {
		snapshot := p.configGraph.Clone()

		if len(p.configGraph.Predecessors(node)) == 0 {
			if len(p.sinkFilter) == 0 {
				if _, err := p.AddEdge(p.contextNode, node); err != nil {
					return false, err
				}
			} else {
				// With filters present only filtered nodes get wired
				// to the context; everything else is just a root.
				p.roots = append(p.roots, node)
			}
		}

		if _, filtered := p.sinkFilter[node.ID()]; filtered {
			if _, err := p.AddEdge(p.contextNode, node); err != nil {
				return false, err
			}
			p.satisfiedFilters.Add(node.ID())
		}

		key := factoryKey(node)
		factory := p.getFactory(key)
		if factory == nil {
			return false, &NoFactoryError{Key: key}
		}
		if err := factory.SetupGraph(ctx, p.pctx.Query(), node, p); err != nil {
			return false, fmt.Errorf("factory %q setup for node %q: %w", key, node.ID(), err)
		}

		alreadySetup[node] = struct{}{}
		if !p.configGraph.Equal(snapshot) {
			return true, nil
		}
	}

	// All done, move up.
	for _, upstream := range p.configGraph.Predecessors(node) {
		modified, err := p.recursiveSetup(ctx, upstream, alreadySetup)
		if err != nil || modified {
			return modified, err
		}
	}
	return false, nil
}
