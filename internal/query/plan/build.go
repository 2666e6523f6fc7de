package plan

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
)

// buildGraph materializes the executor graph bottom-up. Breadth-first
// from the context node, every reachable predecessor-less config seeds
// the recursion; in practice that is the context sentinel fanning into
// the user graph.
func (p *Planner) buildGraph(ctx context.Context) error {
	p.execGraph.AddNode(p.contextSink)
	p.nodesMap[ContextNodeID] = p.contextSink

	constructed := mapset.NewThreadUnsafeSet[uint64]()

	queue := []query.NodeConfig{p.contextNode}
	visited := map[query.NodeConfig]struct{}{p.contextNode: {}}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if in, _ := p.configGraph.Degree(node); in == 0 {
			if _, err := p.buildNodeGraph(ctx, node, constructed); err != nil {
				return err
			}
		}
		for _, succ := range p.configGraph.Successors(node) {
			if _, ok := visited[succ]; !ok {
				visited[succ] = struct{}{}
				queue = append(queue, succ)
			}
		}
	}
	return nil
}

// buildNodeGraph builds the executor for node after recursively
// building its downstream dependencies, then links it to them.
// Construction is content addressed: configs with equal build hashes
// share one executor.
func (p *Planner) buildNodeGraph(ctx context.Context, node query.NodeConfig, constructed mapset.Set[uint64]) (exec.Node, error) {
	if constructed.Contains(node.BuildHashCode()) {
		return p.nodesMap[node.ID()], nil
	}

	// Walk down the graph first, collecting the executors we feed from.
	var sources []exec.Node
	for _, succ := range p.configGraph.Successors(node) {
		built, err := p.buildNodeGraph(ctx, succ, constructed)
		if err != nil {
			return nil, err
		}
		sources = append(sources, built)
	}

	// The sentinel maps to the externally supplied sink rather than a
	// factory-built executor.
	if p.isContextNode(node) {
		for _, src := range sources {
			if err := p.putExecEdge(p.contextSink, src); err != nil {
				return nil, err
			}
		}
		return p.contextSink, nil
	}

	key := factoryKey(node)
	factory := p.getFactory(key)
	if factory == nil {
		return nil, &NoFactoryError{Key: key}
	}

	queryNode := factory.NewNode(ctx, p.pctx, node)
	if queryNode == nil {
		return nil, &NilNodeError{ID: node.ID()}
	}
	p.execGraph.AddNode(queryNode)
	p.nodesMap[queryNode.Config().ID()] = queryNode
	constructed.Add(node.BuildHashCode())

	if ds, ok := queryNode.(exec.DataSource); ok {
		p.dataSources = append(p.dataSources, ds)
	}

	for _, src := range sources {
		if err := p.putExecEdge(queryNode, src); err != nil {
			return nil, err
		}
	}
	return queryNode, nil
}

func (p *Planner) putExecEdge(from, to exec.Node) error {
	added, err := p.execGraph.PutEdge(from, to)
	if err != nil {
		return err
	}
	if p.execGraph.HasCycle() {
		if added {
			p.execGraph.RemoveEdge(from, to)
		}
		return &CycleError{From: from.Config().ID(), To: to.Config().ID()}
	}
	return nil
}

// computeSerializationSources calculates the result ids the sink will
// observe. Data sources and joiners emit their own id; the recursion
// stops there. Directly under the context node, results coming through
// a non-terminal operator are prefixed with that operator's id so the
// sink can tell the paths apart.
func (p *Planner) computeSerializationSources(node query.NodeConfig) mapset.Set[string] {
	if isDataSource(node) || node.Joins() {
		return mapset.NewThreadUnsafeSet(node.ID())
	}

	ids := mapset.NewThreadUnsafeSet[string]()
	for _, downstream := range p.configGraph.Successors(node) {
		downstreamIDs := p.computeSerializationSources(downstream)
		if p.isContextNode(node) && !isDataSource(downstream) && !downstream.Joins() {
			for id := range downstreamIDs.Iter() {
				ids.Add(downstream.ID() + ":" + id)
			}
		} else {
			ids = ids.Union(downstreamIDs)
		}
	}
	return ids
}
