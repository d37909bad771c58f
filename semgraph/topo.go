package semgraph

import (
	"sync"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// topoCache holds a Graph's topological order.  Every structural mutation bumps gen, so a
// cached order is never served for a graph that changed since it was computed.
type topoCache struct {
	mu       sync.Mutex
	gen      uint64
	validGen uint64
	valid    bool
	order    []*Node
	err      error
}

func (tc *topoCache) invalidate() {
	tc.mu.Lock()
	tc.gen++
	tc.valid = false
	tc.order = nil
	tc.err = nil
	tc.mu.Unlock()
}

// Generation returns a counter that changes on every structural mutation of this graph.
func (g *Graph) Generation() uint64 {
	g.topo.mu.Lock()
	defer g.topo.mu.Unlock()
	return g.topo.gen
}

// TopologicalSort returns the vertices such that every governor precedes its dependents,
// breaking ties by sentence order.
//
// If the graph has a cycle, ErrCyclic is returned along with the vertices in sentence order.
// The result is cached until the next mutation; callers must not modify the returned slice.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	tc := &g.topo
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.valid && tc.validGen == tc.gen {
		return tc.order, tc.err
	}

	tc.order, tc.err = g.kahnSort()
	tc.validGen = tc.gen
	tc.valid = true
	return tc.order, tc.err
}

func (g *Graph) kahnSort() ([]*Node, error) {
	Nv := len(g.adj)
	inDegree := make(map[*Node]int, Nv)

	ready := binaryheap.NewWith(func(a, b interface{}) int {
		return a.(*Node).Index - b.(*Node).Index
	})

	for n, ve := range g.adj {
		inDegree[n] = len(ve.in)
		if len(ve.in) == 0 {
			ready.Push(n)
		}
	}

	order := make([]*Node, 0, Nv)
	for !ready.Empty() {
		top, _ := ready.Pop()
		n := top.(*Node)
		order = append(order, n)
		for _, e := range g.adj[n].out {
			inDegree[e.Dep]--
			if inDegree[e.Dep] == 0 {
				ready.Push(e.Dep)
			}
		}
	}

	if len(order) != Nv {
		return g.Vertices(), ErrCyclic
	}
	return order, nil
}
