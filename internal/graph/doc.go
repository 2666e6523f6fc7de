// Package graph provides the directed graph the planner uses for both
// its configuration and executor views. It is a plain in-memory
// structure: no locking, no persistence. Cycle rejection is the
// caller's job via HasCycle after each mutation; the graph itself only
// forbids self-loops.
package graph
