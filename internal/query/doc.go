// Package query holds the declarative side of the engine: operator
// configurations, data source configurations and the query envelope
// the planner consumes. Configs are immutable once built; a modified
// copy is produced through the builder returned by ToBuilder.
package query
