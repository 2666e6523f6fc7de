package plan

import "github.com/cespare/xxhash/v2"

// ContextNodeID is the reserved id of the synthetic context node. User
// queries must not use it.
const ContextNodeID = "QueryContext"

// contextNodeHash is fixed so plans hash identically across processes.
var contextNodeHash = xxhash.Sum64String(ContextNodeID)

// ContextNodeConfig is the synthetic root of the configuration graph.
// It has no factory and corresponds one to one with the externally
// supplied context sink executor. Exactly one instance exists per
// planner.
type ContextNodeConfig struct{}

// ID implements query.NodeConfig.
func (c *ContextNodeConfig) ID() string { return ContextNodeID }

// Type implements query.NodeConfig.
func (c *ContextNodeConfig) Type() string { return "" }

// Sources implements query.NodeConfig.
func (c *ContextNodeConfig) Sources() []string { return nil }

// PushDown implements query.NodeConfig.
func (c *ContextNodeConfig) PushDown() bool { return false }

// Joins implements query.NodeConfig.
func (c *ContextNodeConfig) Joins() bool { return false }

// BuildHashCode implements query.NodeConfig.
func (c *ContextNodeConfig) BuildHashCode() uint64 { return contextNodeHash }
