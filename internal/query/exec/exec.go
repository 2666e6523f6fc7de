// Package exec defines the executor-side contracts of the pipeline:
// runtime nodes, the factories that produce them, and the planner
// surface factories are allowed to mutate during setup.
package exec

import (
	"context"

	"github.com/vk/tsquery/internal/graph"
	"github.com/vk/tsquery/internal/query"
)

// Node is a materialized operator in the executor graph.
type Node interface {
	// Config returns the configuration this node was built from.
	Config() query.NodeConfig

	// Initialize prepares the node for streaming. The planner
	// guarantees every downstream dependency finished initializing
	// before this is called. The context carries the logger and the
	// active tracing span.
	Initialize(ctx context.Context) error
}

// DataSource is a Node that reads time-series data. The planner tracks
// these separately so the caller can address the stores a query will
// hit.
type DataSource interface {
	Node

	// SourceConfig returns the data source view of the node's config.
	SourceConfig() query.DataSourceConfig
}

// Planner is the mutation surface handed to factories during
// SetupGraph. All methods operate on the configuration graph; the
// executor graph does not exist yet at setup time.
type Planner interface {
	// ConfigGraph exposes the live configuration graph for inspection.
	ConfigGraph() *graph.Directed[query.NodeConfig]

	// AddEdge inserts the edge from -> to, reporting whether it was
	// newly added. A CycleError is returned and the graph left
	// unchanged when the edge would close a cycle.
	AddEdge(from, to query.NodeConfig) (bool, error)

	// RemoveEdge removes the edge and prunes endpoints that become
	// fully disconnected. It reports whether the edge existed.
	RemoveEdge(from, to query.NodeConfig) bool

	// RemoveNode drops a node and all incident edges.
	RemoveNode(cfg query.NodeConfig) bool

	// Replace swaps oldCfg for newCfg, preserving every neighbor edge.
	Replace(oldCfg, newCfg query.NodeConfig) error
}

// Factory builds executors for one operator type and may rewrite the
// configuration graph before executors exist.
type Factory interface {
	// SetupGraph lets the factory adjust the config graph around the
	// given node: replace it, insert intermediates, or wire extra
	// edges. Called at most once per node config during setup, even
	// when a mutation restarts the setup traversal.
	SetupGraph(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner Planner) error

	// SupportsPushdown reports whether executors of this factory can
	// absorb the given operator config.
	SupportsPushdown(cfg query.NodeConfig) bool

	// NewNode materializes an executor for the config. A nil return is
	// treated as a fatal planning error.
	NewNode(ctx context.Context, pctx PipelineContext, cfg query.NodeConfig) Node
}

// FactorySource resolves factory keys to factories. Keys are lowercase.
type FactorySource interface {
	QueryNodeFactory(key string) Factory
}

// PipelineContext is the planner's window into the surrounding query
// pipeline.
type PipelineContext interface {
	// Query returns the query being planned.
	Query() *query.TimeSeriesQuery

	// Registry resolves operator factories.
	Registry() FactorySource
}
