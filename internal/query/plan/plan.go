package plan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/query"
)

// Plan runs the full planning pipeline: building the config graph,
// converging factory setup, initializing source filters, pushing
// operators down into sources, computing serialization sources, and
// building and initializing the executor graph. It blocks until every
// executor finished initializing or a step failed.
func (p *Planner) Plan(ctx context.Context) error {
	if p.planned {
		return errors.New("plan may only be called once per planner")
	}
	p.planned = true

	span, ctx := opentracing.StartSpanFromContext(ctx, "planner.plan")
	defer span.Finish()

	plansStarted.Inc()
	timer := prometheus.NewTimer(planDuration)
	defer timer.ObserveDuration()

	if err := p.plan(ctx); err != nil {
		plansFailed.Inc()
		span.SetTag("error", true)
		return err
	}
	return nil
}

func (p *Planner) plan(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := p.parseSinkFilters(); err != nil {
		return err
	}

	if err := p.buildConfigGraph(); err != nil {
		return err
	}
	logger.Debug("Plan: config graph assembled.", "node_count", p.configGraph.Len())

	if err := p.runSetup(ctx); err != nil {
		return err
	}
	logger.Debug("Plan: factory setup converged.")

	p.rebuildSourceNodes()

	if err := p.initializeSourceFilters(ctx); err != nil {
		return err
	}

	// The continuation: everything after the filter initializations
	// resolve.
	for _, key := range sortedKeys(p.sinkFilter) {
		if !p.satisfiedFilters.Contains(key) {
			return &UnsatisfiedFilterError{Key: key}
		}
	}

	if err := p.runPushDowns(ctx); err != nil {
		return err
	}
	logger.Debug("Plan: push-down complete.", "config_graph", "\n"+p.DescribeConfigGraph())

	p.serializationSources = p.computeSerializationSources(p.contextNode)

	if err := p.buildGraph(ctx); err != nil {
		return err
	}
	logger.Debug("Plan: executor graph built.", "node_count", p.execGraph.Len())

	if err := p.initialize(ctx); err != nil {
		return err
	}
	logger.Debug("Plan: executors initialized.")
	return nil
}

// parseSinkFilters splits serdes filter directives into the sink filter
// map. "nodeId:sourceHint" maps the id to the hint, "nodeId" maps it to
// the empty hint. Everything else is invalid.
func (p *Planner) parseSinkFilters() error {
	for _, cfg := range p.pctx.Query().SerdesConfigs() {
		for _, filter := range cfg.Filter() {
			parts := strings.Split(filter, ":")
			switch {
			case len(parts) == 2 && parts[0] != "":
				p.sinkFilter[parts[0]] = parts[1]
			case len(parts) == 1 && parts[0] != "":
				p.sinkFilter[parts[0]] = ""
			default:
				return &InvalidFilterError{Filter: filter}
			}
		}
	}
	return nil
}

// buildConfigGraph seeds the config graph from the query's execution
// graph: the context sentinel, one vertex per operator config, and a
// parent -> child edge per declared source.
func (p *Planner) buildConfigGraph() error {
	q := p.pctx.Query()
	configMap := make(map[string]query.NodeConfig, len(q.ExecutionGraph())+1)

	p.configGraph.AddNode(p.contextNode)
	configMap[ContextNodeID] = p.contextNode

	for _, node := range q.ExecutionGraph() {
		if _, dup := configMap[node.ID()]; dup {
			return &DuplicateIDError{ID: node.ID()}
		}
		configMap[node.ID()] = node
		p.configGraph.AddNode(node)
	}

	for _, node := range q.ExecutionGraph() {
		if isDataSource(node) {
			p.sourceNodes[node] = struct{}{}
		}
		for _, source := range node.Sources() {
			target, ok := configMap[source]
			if !ok {
				return fmt.Errorf("node %q references unknown source %q", node.ID(), source)
			}
			if _, err := p.configGraph.PutEdge(node, target); err != nil {
				return err
			}
			if p.configGraph.HasCycle() {
				return &CycleError{From: node.ID(), To: target.ID()}
			}
		}
	}
	return nil
}

// initializeSourceFilters kicks off every data source filter
// initialization concurrently and waits for the group.
func (p *Planner) initializeSourceFilters(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, cfg := range p.orderedSourceNodes() {
		ds, ok := cfg.(query.DataSourceConfig)
		if !ok {
			continue
		}
		if filter := ds.Filter(); filter != nil {
			g.Go(func() error {
				return filter.Initialize(gctx)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("initializing source filters: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
