package graph

import "fmt"

// Directed is a directed graph over an arbitrary comparable node type.
// Nodes and adjacency lists keep insertion order so traversals are
// deterministic. Edges are unweighted and unique; re-adding an existing
// edge is a no-op. The zero value is not usable, use New.
type Directed[N comparable] struct {
	vertices map[N]*vertex[N]
	order    []N
}

// vertex holds the adjacency of a single node. preds and succs mirror
// the ordered slices for constant-time membership checks.
type vertex[N comparable] struct {
	preds     map[N]struct{}
	succs     map[N]struct{}
	predOrder []N
	succOrder []N
}

// New creates and returns an initialized, empty Directed graph.
func New[N comparable]() *Directed[N] {
	return &Directed[N]{
		vertices: make(map[N]*vertex[N]),
	}
}

// AddNode inserts a node with no edges. If the node is already present
// the function does nothing and reports false.
func (g *Directed[N]) AddNode(n N) bool {
	if _, ok := g.vertices[n]; ok {
		return false
	}
	g.vertices[n] = &vertex[N]{
		preds: make(map[N]struct{}),
		succs: make(map[N]struct{}),
	}
	g.order = append(g.order, n)
	return true
}

// HasNode reports whether the node is present in the graph.
func (g *Directed[N]) HasNode(n N) bool {
	_, ok := g.vertices[n]
	return ok
}

// PutEdge creates a directed edge from -> to, inserting either endpoint
// if it is not yet present. It reports whether the edge was newly added.
// Self-referential edges are rejected with an error.
func (g *Directed[N]) PutEdge(from, to N) (bool, error) {
	if from == to {
		return false, fmt.Errorf("self-referential edge not allowed: %v", from)
	}
	g.AddNode(from)
	g.AddNode(to)

	fv := g.vertices[from]
	if _, ok := fv.succs[to]; ok {
		return false, nil
	}
	tv := g.vertices[to]
	fv.succs[to] = struct{}{}
	fv.succOrder = append(fv.succOrder, to)
	tv.preds[from] = struct{}{}
	tv.predOrder = append(tv.predOrder, from)
	return true, nil
}

// HasEdge reports whether the edge from -> to exists.
func (g *Directed[N]) HasEdge(from, to N) bool {
	fv, ok := g.vertices[from]
	if !ok {
		return false
	}
	_, ok = fv.succs[to]
	return ok
}

// RemoveEdge deletes the edge from -> to and reports whether it existed.
// The endpoints themselves stay in the graph.
func (g *Directed[N]) RemoveEdge(from, to N) bool {
	fv, ok := g.vertices[from]
	if !ok {
		return false
	}
	if _, ok := fv.succs[to]; !ok {
		return false
	}
	tv := g.vertices[to]
	delete(fv.succs, to)
	fv.succOrder = remove(fv.succOrder, to)
	delete(tv.preds, from)
	tv.predOrder = remove(tv.predOrder, from)
	return true
}

// RemoveNode deletes a node and every edge incident to it. It reports
// whether the node was present.
func (g *Directed[N]) RemoveNode(n N) bool {
	v, ok := g.vertices[n]
	if !ok {
		return false
	}
	for _, p := range v.predOrder {
		pv := g.vertices[p]
		delete(pv.succs, n)
		pv.succOrder = remove(pv.succOrder, n)
	}
	for _, s := range v.succOrder {
		sv := g.vertices[s]
		delete(sv.preds, n)
		sv.predOrder = remove(sv.predOrder, n)
	}
	delete(g.vertices, n)
	g.order = remove(g.order, n)
	return true
}

// Nodes returns all nodes in insertion order. The slice is a copy.
func (g *Directed[N]) Nodes() []N {
	out := make([]N, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes in the graph.
func (g *Directed[N]) Len() int {
	return len(g.vertices)
}

// Predecessors returns the nodes with an edge pointing at n, in the
// order the edges were added. Unknown nodes yield nil.
func (g *Directed[N]) Predecessors(n N) []N {
	v, ok := g.vertices[n]
	if !ok {
		return nil
	}
	out := make([]N, len(v.predOrder))
	copy(out, v.predOrder)
	return out
}

// Successors returns the nodes n points at, in the order the edges were
// added. Unknown nodes yield nil.
func (g *Directed[N]) Successors(n N) []N {
	v, ok := g.vertices[n]
	if !ok {
		return nil
	}
	out := make([]N, len(v.succOrder))
	copy(out, v.succOrder)
	return out
}

// Degree returns the number of incoming and outgoing edges of n.
func (g *Directed[N]) Degree(n N) (in, out int) {
	v, ok := g.vertices[n]
	if !ok {
		return 0, 0
	}
	return len(v.preds), len(v.succs)
}

// remove filters a single element out of a slice, preserving order.
func remove[N comparable](s []N, n N) []N {
	for i, e := range s {
		if e == n {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
