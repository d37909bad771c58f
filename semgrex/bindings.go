package semgrex

import (
	"sort"

	"github.com/2x3systems/semgrex/semgraph"
)

type bindKind uint8

const (
	bindNode bindKind = iota
	bindReln
	bindVar
)

type undoEntry struct {
	kind bindKind
	name string
}

// bindings is the match environment shared by every search of one Matcher.
//
// Commits append to an undo log; a search remembers the log length when it is reset and rolls
// back to it when it backtracks.  Searches reset later always commit later, so rolling back
// to a checkpoint never removes a binding made by an enclosing search.
type bindings struct {
	nodes map[string]*semgraph.Node
	relns map[string]string
	vars  *VariableStrings
	log   []undoEntry
}

func newBindings() *bindings {
	return &bindings{
		nodes: make(map[string]*semgraph.Node),
		relns: make(map[string]string),
		vars:  NewVariableStrings(),
	}
}

func (env *bindings) checkpoint() int {
	return len(env.log)
}

func (env *bindings) rollback(mark int) {
	for i := len(env.log) - 1; i >= mark; i-- {
		entry := env.log[i]
		switch entry.kind {
		case bindNode:
			delete(env.nodes, entry.name)
		case bindReln:
			delete(env.relns, entry.name)
		case bindVar:
			env.vars.Unset(entry.name)
		}
	}
	if mark < len(env.log) {
		env.log = env.log[:mark]
	}
}

func (env *bindings) node(name string) (*semgraph.Node, bool) {
	n, ok := env.nodes[name]
	return n, ok
}

func (env *bindings) reln(name string) (string, bool) {
	label, ok := env.relns[name]
	return label, ok
}

// bindNode binds name to n unless name is already bound (in which case the caller has already checked identity).
func (env *bindings) bindNode(name string, n *semgraph.Node) {
	if _, exists := env.nodes[name]; exists {
		return
	}
	env.nodes[name] = n
	env.log = append(env.log, undoEntry{bindNode, name})
}

func (env *bindings) bindReln(name, label string) {
	if _, exists := env.relns[name]; exists {
		return
	}
	env.relns[name] = label
	env.log = append(env.log, undoEntry{bindReln, name})
}

func (env *bindings) bindVar(name, val string) {
	env.vars.Set(name, val)
	env.log = append(env.log, undoEntry{bindVar, name})
}

func (env *bindings) nodeNames() []string {
	names := make([]string, 0, len(env.nodes))
	for name := range env.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (env *bindings) relnNames() []string {
	names := make([]string, 0, len(env.relns))
	for name := range env.relns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
