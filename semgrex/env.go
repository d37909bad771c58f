package semgrex

import (
	"strconv"

	"github.com/2x3systems/semgrex/semgraph"
)

// Accessor reads one attribute of a node, reporting if the attribute is present.
type Accessor func(n *semgraph.Node) (string, bool)

// Env resolves the short attribute keys written in a pattern ("word", "tag", ..) to accessors.
//
// Keys not bound in an Env and not in the standard table fall back to the node's own attribute
// map, where they may legitimately be absent.
type Env struct {
	accessors map[string]Accessor
}

func NewEnv() *Env {
	return &Env{
		accessors: make(map[string]Accessor),
	}
}

// Bind makes key resolve to the given accessor, overriding the standard table.
func (env *Env) Bind(key string, acc Accessor) {
	env.accessors[key] = acc
}

// Resolve returns the accessor for the given pattern attribute key.
func (env *Env) Resolve(key string) Accessor {
	if env != nil {
		if acc, ok := env.accessors[key]; ok {
			return acc
		}
	}
	if acc, ok := standardAccessors[key]; ok {
		return acc
	}
	return func(n *semgraph.Node) (string, bool) {
		return n.Attr(key)
	}
}

func wordOf(n *semgraph.Node) (string, bool) {
	return n.Word, true
}

func indexOf(n *semgraph.Node) (string, bool) {
	return strconv.Itoa(n.Index), true
}

func attrOf(key string) Accessor {
	return func(n *semgraph.Node) (string, bool) {
		return n.Attr(key)
	}
}

var standardAccessors = map[string]Accessor{
	"word":  wordOf,
	"text":  wordOf,
	"idx":   indexOf,
	"index": indexOf,
	"lemma": attrOf(semgraph.AttrLemma),
	"tag":   attrOf(semgraph.AttrTag),
	"pos":   attrOf(semgraph.AttrTag),
	"ner":   attrOf(semgraph.AttrNER),
}
