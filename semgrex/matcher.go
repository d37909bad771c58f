package semgrex

import (
	"github.com/2x3systems/semgrex/semgraph"
	"github.com/plan-systems/klog"
)

// Matcher runs one Pattern against one graph (or a pair of aligned graphs).
//
// A Matcher is not safe for concurrent use; a Pattern is, so each goroutine should obtain its own Matcher.
type Matcher struct {
	pattern *Pattern
	st      *matchState
	root    search
	anchorG *semgraph.Graph

	anchors   []*semgraph.Node
	anchorIdx int // -1 until Find() picks its first anchor
	anchor    *semgraph.Node
	matched   bool
}

func newMatcher(pat *Pattern, sc scope, opts matchOpts) *Matcher {
	st := &matchState{
		env:        newBindings(),
		ignoreCase: opts.ignoreCase,
	}
	m := &Matcher{
		pattern:   pat,
		st:        st,
		root:      newSearch(pat.root, st, sc),
		anchorG:   sc.g,
		anchorIdx: -1,
	}
	m.anchor = sc.g.FirstRoot()
	m.resetAt(m.anchor)
	return m
}

func (m *Matcher) resetAt(anchor *semgraph.Node) {
	m.st.env.rollback(0)
	m.matched = false
	if anchor != nil {
		m.root.reset(anchor)
	}
}

// Matches attempts a match anchored at the current node (initially the graph's first root).
//
// Calling Matches again moves on to the next way the pattern matches at that anchor.
func (m *Matcher) Matches() bool {
	if m.anchor == nil {
		return false
	}
	m.matched = m.root.advance()
	if m.matched {
		matchCount.Inc()
	}
	return m.matched
}

// Find looks for the next match, first at the current anchor and then at each following
// anchor in topological order.  Calling Find again resumes the search.
func (m *Matcher) Find() bool {
	findCalls.Inc()

	if m.anchorIdx < 0 {
		order, err := m.anchorG.TopologicalSort()
		if err != nil {
			klog.V(2).Infof("graph %v: %v, anchoring in sentence order", m.anchorG.ID, err)
		}
		m.anchors = order
		m.anchorIdx = 0
		if len(m.anchors) == 0 {
			m.anchor = nil
			return false
		}
		m.anchor = m.anchors[0]
		m.resetAt(m.anchor)
		anchorsScanned.Inc()
	}

	for m.anchorIdx < len(m.anchors) {
		if m.Matches() {
			klog.V(5).Infof("pattern %q matched at %v", m.pattern.text, m.anchor)
			return true
		}
		m.anchorIdx++
		if m.anchorIdx < len(m.anchors) {
			m.anchor = m.anchors[m.anchorIdx]
			m.resetAt(m.anchor)
			anchorsScanned.Inc()
		}
	}
	m.anchor = nil
	return false
}

// FindNextMatchingNode is like Find but skips matches whose matched node is the same as the previous one.
func (m *Matcher) FindNextMatchingNode() bool {
	var prev *semgraph.Node
	if m.matched {
		prev = m.Match()
	}
	for m.Find() {
		if m.Match() != prev {
			return true
		}
	}
	return false
}

// Match returns the node matched by the top of the pattern, or nil if there is no current match.
//
// Match panics with ErrNoMatchDefined when the top of the pattern is a negated coordination.
func (m *Matcher) Match() *semgraph.Node {
	if !m.matched {
		return nil
	}
	return m.root.match()
}

// Node returns the node bound to the given name by the current match.
func (m *Matcher) Node(name string) *semgraph.Node {
	n, _ := m.st.env.node(name)
	return n
}

// RelnString returns the edge label bound to the given relation name by the current match.
func (m *Matcher) RelnString(name string) string {
	label, _ := m.st.env.reln(name)
	return label
}

// VariableString returns the substring bound to the given regex variable by the current match.
func (m *Matcher) VariableString(name string) string {
	val, _ := m.st.env.vars.String(name)
	return val
}

// NodeNames returns the names bound by the current match, sorted.
func (m *Matcher) NodeNames() []string {
	return m.st.env.nodeNames()
}

// RelationNames returns the relation names bound by the current match, sorted.
func (m *Matcher) RelationNames() []string {
	return m.st.env.relnNames()
}

// Graph returns the graph the anchors are drawn from.
func (m *Matcher) Graph() *semgraph.Graph {
	return m.anchorG
}

func (m *Matcher) Pattern() *Pattern {
	return m.pattern
}
