package semgrex

import (
	"github.com/2x3systems/semgrex/semgraph"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/stacks/arraystack"
)

// NodeIterator lazily yields the candidates of a relation along with the label of the edge
// that reached each one ("" when no edge is involved).
type NodeIterator interface {
	Next() (n *semgraph.Node, reln string, ok bool)
}

// scope is the graph a search is currently walking.  For an aligned search it also carries
// both graphs and the alignment, and hyp reports which side is active.
type scope struct {
	g   *semgraph.Graph
	hyp bool
	al  *alignedGraphs
}

type alignedGraphs struct {
	hyp       *semgraph.Graph
	txt       *semgraph.Graph
	alignment *semgraph.Alignment
}

// across flips an aligned scope to the other graph.
func (sc scope) across() scope {
	if sc.al == nil {
		return sc
	}
	if sc.hyp {
		return scope{g: sc.al.txt, hyp: false, al: sc.al}
	}
	return scope{g: sc.al.hyp, hyp: true, al: sc.al}
}

type emptyIter struct{}

func (emptyIter) Next() (*semgraph.Node, string, bool) {
	return nil, "", false
}

type singleIter struct {
	node *semgraph.Node
	done bool
}

func (it *singleIter) Next() (*semgraph.Node, string, bool) {
	if it.done || it.node == nil {
		return nil, "", false
	}
	it.done = true
	return it.node, "", true
}

type nodesIter struct {
	nodes []*semgraph.Node
	i     int
}

func (it *nodesIter) Next() (*semgraph.Node, string, bool) {
	if it.i >= len(it.nodes) {
		return nil, "", false
	}
	n := it.nodes[it.i]
	it.i++
	return n, "", true
}

// pairIter walks the labeled neighbors of a node, skipping labels the type rejects.
type pairIter struct {
	pairs []semgraph.Pair
	typ   LabelMatcher
	i     int
}

func (it *pairIter) Next() (*semgraph.Node, string, bool) {
	for it.i < len(it.pairs) {
		p := it.pairs[it.i]
		it.i++
		if it.typ.Matches(p.Reln) {
			return p.Node, p.Reln, true
		}
	}
	return nil, "", false
}

// closureIter is a depth-first walk for ">>" (children) or "<<" (parents).
//
// Every node is expanded once (searched), and emitted at most once (matched).  The type is
// tested against the edge reaching a node at the moment it would be emitted, so a node whose
// incoming edge is rejected still has its own neighbors explored.
type closureIter struct {
	g        *semgraph.Graph
	typ      LabelMatcher
	up       bool
	stack    *arraystack.Stack
	searched *hashset.Set
	matched  *hashset.Set
}

func newClosureIter(g *semgraph.Graph, from *semgraph.Node, typ LabelMatcher, up bool) *closureIter {
	it := &closureIter{
		g:        g,
		typ:      typ,
		up:       up,
		stack:    arraystack.New(),
		searched: hashset.New(),
		matched:  hashset.New(),
	}
	it.searched.Add(from)
	it.pushNeighbors(from)
	return it
}

func (it *closureIter) neighbors(n *semgraph.Node) []semgraph.Pair {
	if it.up {
		return it.g.ParentPairs(n)
	}
	return it.g.ChildPairs(n)
}

// pushNeighbors pushes in reverse so the first neighbor is popped first.
func (it *closureIter) pushNeighbors(n *semgraph.Node) {
	pairs := it.neighbors(n)
	for i := len(pairs) - 1; i >= 0; i-- {
		it.stack.Push(pairs[i])
	}
}

func (it *closureIter) Next() (*semgraph.Node, string, bool) {
	for {
		top, ok := it.stack.Pop()
		if !ok {
			return nil, "", false
		}
		p := top.(semgraph.Pair)
		if !it.searched.Contains(p.Node) {
			it.searched.Add(p.Node)
			it.pushNeighbors(p.Node)
		}
		if it.typ.Matches(p.Reln) && !it.matched.Contains(p.Node) {
			it.matched.Add(p.Node)
			return p.Node, p.Reln, true
		}
	}
}

// boundedIter is the breadth-first walk behind "n,m>>" and "n,m<<".
//
// Each depth keeps its own frontier set, so a node may be reached again at a different depth
// but is expanded once per depth.  Every edge arriving at a depth within [min,max] is tested
// against the type, including edges into a node already in that depth's frontier, so a node
// reached by a second branch with an acceptable label is not lost.  No node is emitted twice.
type boundedIter struct {
	g        *semgraph.Graph
	rel      *Relation
	up       bool
	depth    int
	frontier *linkedhashset.Set
	matched  *hashset.Set
	ready    []semgraph.Pair
}

func newBoundedIter(g *semgraph.Graph, from *semgraph.Node, rel *Relation, up bool) *boundedIter {
	it := &boundedIter{
		g:        g,
		rel:      rel,
		up:       up,
		frontier: linkedhashset.New(from),
		matched:  hashset.New(),
	}
	return it
}

// descend expands the frontier one level, queuing the nodes to emit at the new depth.
func (it *boundedIter) descend() bool {
	if it.depth >= it.rel.MaxDepth || it.frontier.Empty() {
		return false
	}
	it.depth++
	inRange := it.depth >= it.rel.MinDepth

	next := linkedhashset.New()
	it.frontier.Each(func(_ int, v interface{}) {
		n := v.(*semgraph.Node)
		var pairs []semgraph.Pair
		if it.up {
			pairs = it.g.ParentPairs(n)
		} else {
			pairs = it.g.ChildPairs(n)
		}
		for _, p := range pairs {
			next.Add(p.Node)
			if inRange && !it.matched.Contains(p.Node) && it.rel.Type.Matches(p.Reln) {
				it.matched.Add(p.Node)
				it.ready = append(it.ready, p)
			}
		}
	})
	it.frontier = next
	return true
}

func (it *boundedIter) Next() (*semgraph.Node, string, bool) {
	for len(it.ready) == 0 {
		if !it.descend() {
			return nil, "", false
		}
	}
	p := it.ready[0]
	it.ready = it.ready[1:]
	return p.Node, p.Reln, true
}

// siblingsOf returns the nodes sharing a governor with n that satisfy the sibling order of rel, in sentence order.
func siblingsOf(g *semgraph.Graph, n *semgraph.Node, rel *Relation) []*semgraph.Node {
	sibs := treeset.NewWith(func(a, b interface{}) int {
		return a.(*semgraph.Node).Index - b.(*semgraph.Node).Index
	})
	for _, parent := range g.Parents(n) {
		for _, kid := range g.Children(parent) {
			if kid != n && rel.siblingOrder(n, kid) {
				sibs.Add(kid)
			}
		}
	}

	nodes := make([]*semgraph.Node, 0, sibs.Size())
	for _, v := range sibs.Values() {
		nodes = append(nodes, v.(*semgraph.Node))
	}
	return nodes
}

// alignmentIter yields the nodes aligned to a node.  From the hypothesis side there is at most
// one; from the text side the alignment is scanned for every hypothesis node mapped onto it.
type alignmentIter struct {
	from *semgraph.Node
	sc   scope
	i    int
	done bool
}

func newAlignmentIter(from *semgraph.Node, sc scope) NodeIterator {
	if sc.al == nil || sc.al.alignment == nil {
		return emptyIter{}
	}
	return &alignmentIter{
		from: from,
		sc:   sc,
	}
}

func (it *alignmentIter) Next() (*semgraph.Node, string, bool) {
	if it.done {
		return nil, "", false
	}
	al := it.sc.al

	if it.sc.hyp {
		it.done = true
		if t, ok := al.alignment.Lookup(it.from); ok && al.txt.ContainsVertex(t) {
			return t, "", true
		}
		return nil, "", false
	}

	for it.i < al.alignment.Len() {
		pair := al.alignment.PairAt(it.i)
		it.i++
		if pair.Text == it.from && al.hyp.ContainsVertex(pair.Hyp) {
			return pair.Hyp, "", true
		}
	}
	it.done = true
	return nil, "", false
}
