package semgraph

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/btree"
)

// Graph is a labeled, possibly multi-rooted, directed graph over tokens.
//
// Mutations must come from a single goroutine.  Once built, a Graph may be read (and matched
// against) from many goroutines; the cached topological order is guarded internally.
type Graph struct {
	ID uuid.UUID

	byIndex btree.Map[int, *Node]  // vertices in sentence order
	adj     map[*Node]*vertexEdges // vertex membership and adjacency
	roots   []*Node                // explicit roots (if any)
	edges   int

	topo topoCache
}

type vertexEdges struct {
	out []*Edge
	in  []*Edge
}

func New() *Graph {
	return &Graph{
		ID:  uuid.New(),
		adj: make(map[*Node]*vertexEdges),
	}
}

// AddVertex adds n to this graph.  Adding a vertex already present is a no-op.
func (g *Graph) AddVertex(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if _, exists := g.adj[n]; exists {
		return nil
	}
	if other, taken := g.byIndex.Get(n.Index); taken && other != n {
		return errors.Wrapf(ErrDuplicateIndex, "index %d (%v vs %v)", n.Index, other, n)
	}
	g.byIndex.Set(n.Index, n)
	g.adj[n] = &vertexEdges{}
	g.onChanged()
	return nil
}

// RemoveVertex removes n and every edge touching it.  Returns false if n was not a vertex.
func (g *Graph) RemoveVertex(n *Node) bool {
	ve := g.adj[n]
	if ve == nil {
		return false
	}
	for _, e := range append([]*Edge{}, ve.out...) {
		g.RemoveEdge(e)
	}
	for _, e := range append([]*Edge{}, ve.in...) {
		g.RemoveEdge(e)
	}
	delete(g.adj, n)
	g.byIndex.Delete(n.Index)
	for i, root := range g.roots {
		if root == n {
			g.roots = append(g.roots[:i], g.roots[i+1:]...)
			break
		}
	}
	g.onChanged()
	return true
}

// AddEdge adds a gov -> dep edge labeled reln, adding either vertex if needed.
// An identical existing edge is returned as is.
func (g *Graph) AddEdge(gov, dep *Node, reln string) (*Edge, error) {
	if gov == nil || dep == nil {
		return nil, ErrNilNode
	}
	if err := g.AddVertex(gov); err != nil {
		return nil, err
	}
	if err := g.AddVertex(dep); err != nil {
		return nil, err
	}
	for _, e := range g.adj[gov].out {
		if e.Dep == dep && e.Reln == reln {
			return e, nil
		}
	}

	e := &Edge{
		Gov:  gov,
		Dep:  dep,
		Reln: reln,
	}
	g.adj[gov].out = append(g.adj[gov].out, e)
	g.adj[dep].in = append(g.adj[dep].in, e)
	g.edges++
	g.onChanged()
	return e, nil
}

// RemoveEdge removes the given edge.  Returns false if it was not part of this graph.
func (g *Graph) RemoveEdge(e *Edge) bool {
	if e == nil {
		return false
	}
	gov := g.adj[e.Gov]
	dep := g.adj[e.Dep]
	if gov == nil || dep == nil {
		return false
	}
	removed := false
	gov.out, removed = dropEdge(gov.out, e)
	if !removed {
		return false
	}
	dep.in, _ = dropEdge(dep.in, e)
	g.edges--
	g.onChanged()
	return true
}

func dropEdge(edges []*Edge, e *Edge) ([]*Edge, bool) {
	for i, ei := range edges {
		if ei == e {
			return append(edges[:i], edges[i+1:]...), true
		}
	}
	return edges, false
}

// SetRoots replaces the explicit roots of this graph.
func (g *Graph) SetRoots(roots ...*Node) error {
	for _, n := range roots {
		if !g.ContainsVertex(n) {
			return errors.Wrapf(ErrNotVertex, "root %v", n)
		}
	}
	g.roots = append(g.roots[:0], roots...)
	g.onChanged()
	return nil
}

// AddRoot marks n (which must be a vertex) as an explicit root.
func (g *Graph) AddRoot(n *Node) error {
	if !g.ContainsVertex(n) {
		return errors.Wrapf(ErrNotVertex, "root %v", n)
	}
	for _, root := range g.roots {
		if root == n {
			return nil
		}
	}
	g.roots = append(g.roots, n)
	g.onChanged()
	return nil
}

// Roots returns the explicit roots of this graph, or if none were set, every vertex without
// an incoming edge (in sentence order).
func (g *Graph) Roots() []*Node {
	if len(g.roots) > 0 {
		return append([]*Node{}, g.roots...)
	}
	var roots []*Node
	g.byIndex.Scan(func(_ int, n *Node) bool {
		if len(g.adj[n].in) == 0 {
			roots = append(roots, n)
		}
		return true
	})
	return roots
}

// FirstRoot returns the first root of this graph or nil if the graph has no roots.
func (g *Graph) FirstRoot() *Node {
	if len(g.roots) > 0 {
		return g.roots[0]
	}
	roots := g.Roots()
	if len(roots) == 0 {
		return nil
	}
	return roots[0]
}

func (g *Graph) IsRoot(n *Node) bool {
	if !g.ContainsVertex(n) {
		return false
	}
	if len(g.roots) > 0 {
		for _, root := range g.roots {
			if root == n {
				return true
			}
		}
		return false
	}
	return len(g.adj[n].in) == 0
}

func (g *Graph) ContainsVertex(n *Node) bool {
	if n == nil {
		return false
	}
	_, exists := g.adj[n]
	return exists
}

func (g *Graph) VertexCount() int {
	return len(g.adj)
}

func (g *Graph) EdgeCount() int {
	return g.edges
}

// VertexByIndex returns the vertex with the given token index (or nil).
func (g *Graph) VertexByIndex(index int) *Node {
	n, _ := g.byIndex.Get(index)
	return n
}

// Vertices returns all vertices in sentence order.
func (g *Graph) Vertices() []*Node {
	return g.byIndex.Values()
}

// Edges returns every edge, ordered by governor then by insertion.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, g.edges)
	g.byIndex.Scan(func(_ int, n *Node) bool {
		edges = append(edges, g.adj[n].out...)
		return true
	})
	return edges
}

// OutgoingEdges returns the edges governed by n.  The returned slice must not be modified.
func (g *Graph) OutgoingEdges(n *Node) []*Edge {
	if ve := g.adj[n]; ve != nil {
		return ve.out
	}
	return nil
}

// IncomingEdges returns the edges for which n is the dependent.  The returned slice must not be modified.
func (g *Graph) IncomingEdges(n *Node) []*Edge {
	if ve := g.adj[n]; ve != nil {
		return ve.in
	}
	return nil
}

// ChildPairs returns (relation, child) for every outgoing edge of n.
func (g *Graph) ChildPairs(n *Node) []Pair {
	out := g.OutgoingEdges(n)
	pairs := make([]Pair, len(out))
	for i, e := range out {
		pairs[i] = Pair{e.Reln, e.Dep}
	}
	return pairs
}

// ParentPairs returns (relation, parent) for every incoming edge of n.
func (g *Graph) ParentPairs(n *Node) []Pair {
	in := g.IncomingEdges(n)
	pairs := make([]Pair, len(in))
	for i, e := range in {
		pairs[i] = Pair{e.Reln, e.Gov}
	}
	return pairs
}

// Children returns the distinct dependents of n in sentence order.
func (g *Graph) Children(n *Node) []*Node {
	var nodes []*Node
	for _, e := range g.OutgoingEdges(n) {
		nodes = append(nodes, e.Dep)
	}
	return distinctByIndex(nodes)
}

// Parents returns the distinct governors of n in sentence order.
func (g *Graph) Parents(n *Node) []*Node {
	var nodes []*Node
	for _, e := range g.IncomingEdges(n) {
		nodes = append(nodes, e.Gov)
	}
	return distinctByIndex(nodes)
}

func distinctByIndex(nodes []*Node) []*Node {
	if len(nodes) < 2 {
		return nodes
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Index < nodes[j].Index
	})
	out := nodes[:1]
	for _, n := range nodes[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}

// String renders this graph in the compact bracket form read by Parse().
func (g *Graph) String() string {
	b := strings.Builder{}
	g.WriteCompact(&b)
	return b.String()
}

// WriteCompact writes this graph in the compact bracket form, one space between trees.
func (g *Graph) WriteCompact(b *strings.Builder) {
	printed := make(map[*Node]bool, len(g.adj))

	var writeTree func(n *Node)
	writeTree = func(n *Node) {
		out := g.OutgoingEdges(n)
		if printed[n] || len(out) == 0 {
			printed[n] = true
			writeToken(b, n)
			return
		}
		printed[n] = true
		b.WriteByte('[')
		writeToken(b, n)
		for _, e := range out {
			b.WriteByte(' ')
			b.WriteString(e.Reln)
			b.WriteByte('>')
			writeTree(e.Dep)
		}
		b.WriteByte(']')
	}

	trees := 0
	emit := func(n *Node) {
		if trees > 0 {
			b.WriteByte(' ')
		}
		trees++
		writeTree(n)
	}

	for _, root := range g.Roots() {
		emit(root)
	}
	// Anything unreachable from a root (e.g. a cycle) still gets written out
	g.byIndex.Scan(func(_ int, n *Node) bool {
		if !printed[n] {
			emit(n)
		}
		return true
	})
}

func writeToken(b *strings.Builder, n *Node) {
	b.WriteString(n.Word)
	if tag := n.Tag(); tag != "" {
		b.WriteByte('/')
		b.WriteString(tag)
	}
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(n.Index))
}

func (g *Graph) onChanged() {
	g.topo.invalidate()
}
