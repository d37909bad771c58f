// Package semgraph holds the dependency graphs that semgrex patterns are matched against.
//
// A Graph is a set of token vertices joined by labeled, directed governor -> dependent edges.
// A graph may have several roots.  Vertices are identified by pointer; the token index is
// unique within a graph and fixes the sentence order used by sibling and adjacency relations.
package semgraph

import (
	"fmt"
	"sort"
)

// Well known attribute keys
const (
	AttrLemma = "lemma"
	AttrTag   = "tag"
	AttrNER   = "ner"
)

// Node is a token vertex: a word, its 1-based position in the sentence, and an open attribute map.
type Node struct {
	Index int
	Word  string
	attrs map[string]string
}

func NewNode(index int, word string) *Node {
	return &Node{
		Index: index,
		Word:  word,
	}
}

// Attr returns the value stored for the given key and if it is present.
func (n *Node) Attr(key string) (string, bool) {
	if n.attrs == nil {
		return "", false
	}
	val, ok := n.attrs[key]
	return val, ok
}

// SetAttr sets an attribute and returns n so calls can be chained.
func (n *Node) SetAttr(key, val string) *Node {
	if n.attrs == nil {
		n.attrs = make(map[string]string, 4)
	}
	n.attrs[key] = val
	return n
}

// AttrKeys returns the keys of this node's attribute map in sorted order.
func (n *Node) AttrKeys() []string {
	keys := make([]string, 0, len(n.attrs))
	for key := range n.attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) Lemma() string {
	val, _ := n.Attr(AttrLemma)
	return val
}

func (n *Node) Tag() string {
	val, _ := n.Attr(AttrTag)
	return val
}

func (n *Node) NER() string {
	val, _ := n.Attr(AttrNER)
	return val
}

// IsEmpty reports if this is a placeholder token carrying no text.
func (n *Node) IsEmpty() bool {
	return n.Word == ""
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s-%d", n.Word, n.Index)
}

// Edge is a labeled governor -> dependent arc.
type Edge struct {
	Gov  *Node
	Dep  *Node
	Reln string
}

func (e *Edge) String() string {
	return fmt.Sprintf("%v -%s-> %v", e.Gov, e.Reln, e.Dep)
}

// Pair is a (relation label, node) pair as seen from the other end of an edge.
type Pair struct {
	Reln string
	Node *Node
}
