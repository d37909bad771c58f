package semgrex

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/pkg/errors"
)

// RelationKind enumerates the relations a pattern can use to reach one node from another.
type RelationKind uint8

const (
	RelRoot                  RelationKind = iota // the anchor itself
	RelAlignedRoot                               // the anchor of an aligned search
	RelIterator                                  // ":" every vertex
	RelEquals                                    // "==" identity
	RelGovernor                                  // ">"  A governs B
	RelDependent                                 // "<"  A depends on B
	RelGrandParent                               // ">>" A dominates B
	RelGrandKid                                  // "<<" A is dominated by B
	RelBoundedGrandParent                        // "n,m>>"
	RelBoundedGrandKid                           // "n,m<<"
	RelRightImmediateSibling                     // "$+" B immediately follows A and shares a governor
	RelLeftImmediateSibling                      // "$-"
	RelRightSibling                              // "$++"
	RelLeftSibling                               // "$--"
	RelAdjacent                                  // "."  B immediately follows A
	RelAlignment                                 // "@"  B is aligned to A
)

var relationSymbols = map[string]RelationKind{
	"ROOT":         RelRoot,
	"ALIGNED_ROOT": RelAlignedRoot,
	":":            RelIterator,
	"==":           RelEquals,
	">":            RelGovernor,
	"<":            RelDependent,
	">>":           RelGrandParent,
	"<<":           RelGrandKid,
	"$+":           RelRightImmediateSibling,
	"$-":           RelLeftImmediateSibling,
	"$++":          RelRightSibling,
	"$--":          RelLeftSibling,
	".":            RelAdjacent,
	"@":            RelAlignment,
}

// LabelMatcher is a predicate over edge labels: wildcard, exact string, or whole-string regex.
type LabelMatcher struct {
	text string
	re   *regexp.Regexp
	fold bool
}

// AnyLabel matches every edge label.
var AnyLabel = LabelMatcher{}

func ExactLabel(label string) LabelMatcher {
	if label == wildcard {
		return AnyLabel
	}
	return LabelMatcher{text: label}
}

// RegexLabel returns a matcher for labels matching expr in full.
func RegexLabel(expr string, ignoreCase bool) (LabelMatcher, error) {
	re, err := compileWhole(expr, ignoreCase)
	if err != nil {
		return AnyLabel, err
	}
	return LabelMatcher{text: expr, re: re, fold: ignoreCase}, nil
}

func (lm LabelMatcher) Matches(label string) bool {
	switch {
	case lm.re != nil:
		return lm.re.MatchString(label)
	case lm.text == "":
		return true
	default:
		return lm.text == label
	}
}

func (lm LabelMatcher) IsWildcard() bool {
	return lm.re == nil && lm.text == ""
}

func (lm LabelMatcher) String() string {
	switch {
	case lm.re != nil:
		s := "/" + lm.text + "/"
		if lm.fold {
			s += "i"
		}
		return s
	default:
		return lm.text
	}
}

// Relation is a typed predicate between two graph nodes plus a lazy producer of the nodes
// satisfying it from a given node.
type Relation struct {
	Kind     RelationKind
	Symbol   string
	Type     LabelMatcher // edge label filter (governor, dependent, and their closures)
	Name     string       // binds the label of the traversed edge, if non-empty
	MinDepth int          // inclusive depth range of the bounded closures
	MaxDepth int
}

// relationFor returns the relation for the given symbol.  The grammar only produces known
// symbols, so an unknown one is a fault in the relation table.
func relationFor(symbol string, typ LabelMatcher, name string) *Relation {
	kind, known := relationSymbols[symbol]
	if !known {
		panic(errors.Wrapf(ErrUnknownRelation, "%q", symbol))
	}
	return &Relation{
		Kind:   kind,
		Symbol: symbol,
		Type:   typ,
		Name:   name,
	}
}

// boundedRelationFor returns a depth-bounded ">>" or "<<" relation.
func boundedRelationFor(symbol string, minDepth, maxDepth int, typ LabelMatcher, name string) (*Relation, error) {
	rel := relationFor(symbol, typ, name)
	switch rel.Kind {
	case RelGrandParent:
		rel.Kind = RelBoundedGrandParent
	case RelGrandKid:
		rel.Kind = RelBoundedGrandKid
	default:
		return nil, errors.Errorf("depth range not allowed on %q", symbol)
	}
	if minDepth < 1 || maxDepth < minDepth {
		return nil, errors.Errorf("bad depth range %d,%d", minDepth, maxDepth)
	}
	rel.MinDepth = minDepth
	rel.MaxDepth = maxDepth
	return rel, nil
}

// NewRelation returns the relation with the given symbol and optional label type, failing for unknown symbols.
func NewRelation(symbol string, typ LabelMatcher, name string) (*Relation, error) {
	if _, known := relationSymbols[symbol]; !known {
		return nil, errors.Wrapf(ErrUnknownRelation, "%q", symbol)
	}
	return relationFor(symbol, typ, name), nil
}

// NewBoundedRelation returns a depth-bounded closure relation ("n,m>>" or "n,m<<").
func NewBoundedRelation(symbol string, minDepth, maxDepth int, typ LabelMatcher, name string) (*Relation, error) {
	if _, known := relationSymbols[symbol]; !known {
		return nil, errors.Wrapf(ErrUnknownRelation, "%q", symbol)
	}
	return boundedRelationFor(symbol, minDepth, maxDepth, typ, name)
}

func (rel *Relation) isAnchor() bool {
	switch rel.Kind {
	case RelRoot, RelAlignedRoot, RelIterator:
		return true
	}
	return false
}

func (rel *Relation) isSibling() bool {
	switch rel.Kind {
	case RelRightImmediateSibling, RelLeftImmediateSibling, RelRightSibling, RelLeftSibling:
		return true
	}
	return false
}

// Satisfies reports if n1 and n2 stand in this relation in g.
func (rel *Relation) Satisfies(n1, n2 *semgraph.Node, g *semgraph.Graph) bool {
	return rel.satisfies(n1, n2, scope{g: g})
}

// SearchNodeIterator returns the nodes standing in this relation to n in g.
func (rel *Relation) SearchNodeIterator(n *semgraph.Node, g *semgraph.Graph) NodeIterator {
	return rel.search(n, scope{g: g})
}

func (rel *Relation) satisfies(n1, n2 *semgraph.Node, sc scope) bool {
	if n1 == nil || n2 == nil {
		return false
	}
	switch rel.Kind {
	case RelRoot, RelAlignedRoot, RelEquals:
		return n1 == n2
	case RelIterator:
		return sc.g.ContainsVertex(n2)
	case RelGovernor:
		for _, e := range sc.g.OutgoingEdges(n1) {
			if e.Dep == n2 && rel.Type.Matches(e.Reln) {
				return true
			}
		}
		return false
	case RelDependent:
		for _, e := range sc.g.IncomingEdges(n1) {
			if e.Gov == n2 && rel.Type.Matches(e.Reln) {
				return true
			}
		}
		return false
	case RelRightImmediateSibling, RelLeftImmediateSibling, RelRightSibling, RelLeftSibling:
		return n1 != n2 && rel.siblingOrder(n1, n2) && sharesParent(sc.g, n1, n2)
	case RelAdjacent:
		return n2.Index == n1.Index+1 && sc.g.ContainsVertex(n2)
	}

	// closures and alignment: whatever the search yields
	iter := rel.search(n1, sc)
	for {
		cand, _, ok := iter.Next()
		if !ok {
			return false
		}
		if cand == n2 {
			return true
		}
	}
}

func (rel *Relation) siblingOrder(n1, n2 *semgraph.Node) bool {
	switch rel.Kind {
	case RelRightImmediateSibling:
		return n2.Index == n1.Index+1
	case RelLeftImmediateSibling:
		return n2.Index == n1.Index-1
	case RelRightSibling:
		return n2.Index > n1.Index
	case RelLeftSibling:
		return n2.Index < n1.Index
	}
	return false
}

func sharesParent(g *semgraph.Graph, n1, n2 *semgraph.Node) bool {
	for _, p1 := range g.Parents(n1) {
		for _, p2 := range g.Parents(n2) {
			if p1 == p2 {
				return true
			}
		}
	}
	return false
}

func (rel *Relation) search(n *semgraph.Node, sc scope) NodeIterator {
	switch rel.Kind {
	case RelRoot, RelAlignedRoot, RelEquals:
		return &singleIter{node: n}
	case RelIterator:
		return &nodesIter{nodes: sc.g.Vertices()}
	case RelGovernor:
		return &pairIter{pairs: sc.g.ChildPairs(n), typ: rel.Type}
	case RelDependent:
		return &pairIter{pairs: sc.g.ParentPairs(n), typ: rel.Type}
	case RelGrandParent:
		return newClosureIter(sc.g, n, rel.Type, false)
	case RelGrandKid:
		return newClosureIter(sc.g, n, rel.Type, true)
	case RelBoundedGrandParent:
		return newBoundedIter(sc.g, n, rel, false)
	case RelBoundedGrandKid:
		return newBoundedIter(sc.g, n, rel, true)
	case RelRightImmediateSibling, RelLeftImmediateSibling, RelRightSibling, RelLeftSibling:
		return &nodesIter{nodes: siblingsOf(sc.g, n, rel)}
	case RelAdjacent:
		if next := sc.g.VertexByIndex(n.Index + 1); next != nil {
			return &singleIter{node: next}
		}
		return emptyIter{}
	case RelAlignment:
		return newAlignmentIter(n, sc)
	}
	panic(errors.Wrapf(ErrUnknownRelation, "%q", rel.Symbol))
}

// targetScope is the scope the nodes reached through this relation live in.
func (rel *Relation) targetScope(sc scope) scope {
	if rel.Kind == RelAlignment {
		return sc.across()
	}
	return sc
}

func (rel *Relation) String() string {
	b := strings.Builder{}
	rel.writeTo(&b)
	return b.String()
}

func (rel *Relation) writeTo(b *strings.Builder) {
	if rel.isAnchor() {
		return
	}
	switch rel.Kind {
	case RelBoundedGrandParent, RelBoundedGrandKid:
		b.WriteString(strconv.Itoa(rel.MinDepth))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(rel.MaxDepth))
	}
	b.WriteString(rel.Symbol)
	b.WriteString(rel.Type.String())
	if rel.Name != "" {
		b.WriteString("=")
		b.WriteString(rel.Name)
	}
}
