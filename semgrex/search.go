package semgrex

import (
	"github.com/2x3systems/semgrex/semgraph"
	"github.com/pkg/errors"
)

// search is the runtime state of one pattern element bound to a Matcher.
//
// reset points the search at a new node and restarts its enumeration; advance moves to the next
// success, returning false once exhausted.  A search that returns false has rolled the shared
// bindings back to where they were when it was reset.
type search interface {
	reset(n *semgraph.Node)
	advance() bool
	match() *semgraph.Node
}

// matchState is shared by every search of one Matcher.
type matchState struct {
	env        *bindings
	ignoreCase bool
}

// newSearch builds the search for the given element, which is reached from a node living in sc.
func newSearch(expr Expr, st *matchState, sc scope) search {
	switch X := expr.(type) {
	case *NodePattern:
		return newNodeSearch(X, st, sc)
	case *CoordinationPattern:
		return newCoordSearch(X, st, sc)
	}
	panic(errors.Errorf("unexpected pattern element %T", expr))
}

type nodeSearch struct {
	st      *matchState
	pat     *NodePattern
	sc      scope // where the relation starts
	target  scope // where candidates live
	child   search
	iter    NodeIterator
	mark    int
	matched *semgraph.Node
	hits    int
	done    bool
}

func newNodeSearch(pat *NodePattern, st *matchState, sc scope) *nodeSearch {
	ns := &nodeSearch{
		st:     st,
		pat:    pat,
		sc:     sc,
		target: pat.Reln.targetScope(sc),
		iter:   emptyIter{},
		done:   true,
	}
	if pat.Child != nil {
		ns.child = newSearch(pat.Child, st, ns.target)
	}
	return ns
}

func (ns *nodeSearch) reset(n *semgraph.Node) {
	ns.iter = ns.pat.Reln.search(n, ns.sc)
	ns.mark = ns.st.env.checkpoint()
	ns.matched = nil
	ns.hits = 0
	ns.done = false
}

func (ns *nodeSearch) match() *semgraph.Node {
	return ns.matched
}

func (ns *nodeSearch) advance() bool {
	if ns.done {
		return false
	}
	switch {
	case ns.pat.Negated:
		found := ns.advancePositive()
		ns.st.env.rollback(ns.mark)
		ns.matched = nil
		ns.done = true
		return !found
	case ns.pat.Optional:
		if ns.advancePositive() {
			ns.hits++
			return true
		}
		ns.done = true
		return ns.hits == 0
	}
	return ns.advancePositive()
}

func (ns *nodeSearch) advancePositive() bool {
	env := ns.st.env

	// the child may have another success under the current candidate
	if ns.matched != nil {
		if ns.child != nil && ns.child.advance() {
			return true
		}
		env.rollback(ns.mark)
		ns.matched = nil
	}

	for {
		cand, label, ok := ns.iter.Next()
		if !ok {
			ns.done = true
			return false
		}
		if !ns.accept(cand, label) {
			continue
		}
		ns.matched = cand
		if ns.child == nil {
			return true
		}
		ns.child.reset(cand)
		if ns.child.advance() {
			return true
		}
		env.rollback(ns.mark)
		ns.matched = nil
	}
}

// accept tests a candidate and, if it passes, commits its bindings.
func (ns *nodeSearch) accept(cand *semgraph.Node, label string) bool {
	pat := ns.pat
	env := ns.st.env

	bound := false
	if pat.Name != "" {
		if prev, ok := env.node(pat.Name); ok {
			if prev != cand {
				return false
			}
			bound = true
		}
	}

	var caps []capture
	if !(pat.Link && bound) {
		var ok bool
		if ok, caps = pat.attrMatch(cand, ns.target.g, ns.st.ignoreCase, env.vars); !ok {
			return false
		}
	}

	if relName := pat.Reln.Name; relName != "" {
		if prev, ok := env.reln(relName); ok && prev != label {
			return false
		}
	}

	if pat.Name != "" {
		env.bindNode(pat.Name, cand)
	}
	if relName := pat.Reln.Name; relName != "" {
		env.bindReln(relName, label)
	}
	for _, c := range caps {
		env.bindVar(c.name, c.val)
	}
	return true
}

type coordSearch struct {
	st       *matchState
	pat      *CoordinationPattern
	children []search
	node     *semgraph.Node
	cur      int
	mark     int
	hits     int
	done     bool
}

func newCoordSearch(pat *CoordinationPattern, st *matchState, sc scope) *coordSearch {
	cs := &coordSearch{
		st:       st,
		pat:      pat,
		children: make([]search, len(pat.Children)),
		done:     true,
	}
	for i, child := range pat.Children {
		cs.children[i] = newSearch(child, st, sc)
	}
	return cs
}

func (cs *coordSearch) reset(n *semgraph.Node) {
	cs.node = n
	cs.cur = 0
	cs.mark = cs.st.env.checkpoint()
	cs.hits = 0
	cs.done = len(cs.children) == 0
	if !cs.done {
		cs.children[0].reset(n)
	}
}

func (cs *coordSearch) match() *semgraph.Node {
	if cs.pat.Negated {
		panic(errors.Wrap(ErrNoMatchDefined, "negated coordination"))
	}
	if len(cs.children) == 0 || cs.cur < 0 || cs.cur >= len(cs.children) {
		return nil
	}
	if cs.pat.Kind == AllOf {
		return cs.children[0].match()
	}
	return cs.children[cs.cur].match()
}

func (cs *coordSearch) advance() bool {
	if cs.done {
		return false
	}
	switch {
	case cs.pat.Negated:
		found := cs.advancePositive()
		cs.st.env.rollback(cs.mark)
		cs.done = true
		return !found
	case cs.pat.Optional:
		if cs.advancePositive() {
			cs.hits++
			return true
		}
		cs.done = true
		return cs.hits == 0
	}
	return cs.advancePositive()
}

func (cs *coordSearch) advancePositive() bool {
	var found bool
	if cs.pat.Kind == AllOf {
		found = cs.advanceAll()
	} else {
		found = cs.advanceAny()
	}
	if !found {
		cs.done = true
	}
	return found
}

// advanceAll backtracks across the children: the last child is advanced first, and a child
// that is exhausted hands control back to its predecessor, which then resets its successor.
func (cs *coordSearch) advanceAll() bool {
	last := len(cs.children) - 1
	for cs.cur >= 0 {
		if !cs.children[cs.cur].advance() {
			cs.cur--
			continue
		}
		if cs.cur == last {
			return true
		}
		cs.cur++
		cs.children[cs.cur].reset(cs.node)
	}
	return false
}

func (cs *coordSearch) advanceAny() bool {
	for cs.cur < len(cs.children) {
		if cs.children[cs.cur].advance() {
			return true
		}
		cs.cur++
		if cs.cur < len(cs.children) {
			cs.children[cs.cur].reset(cs.node)
		}
	}
	return false
}
