package semgraph

import (
	"fmt"
	"sort"
	"strings"
)

// AlignedPair maps a hypothesis vertex onto a text vertex.
type AlignedPair struct {
	Hyp  *Node
	Text *Node
}

// Alignment is a one-directional correspondence from the vertices of a "hypothesis" graph
// onto the vertices of a "text" graph, plus a score and a justification.
//
// An Alignment is immutable once constructed.  Forward lookup is a map access; reverse lookup
// is a linear scan.
type Alignment struct {
	pairs         []AlignedPair // ordered by hypothesis index
	forward       map[*Node]*Node
	score         float64
	justification string
}

// NewAlignment copies the given hypothesis -> text map.  Nil keys or values are dropped.
func NewAlignment(hypToText map[*Node]*Node, score float64, justification string) *Alignment {
	a := &Alignment{
		pairs:         make([]AlignedPair, 0, len(hypToText)),
		forward:       make(map[*Node]*Node, len(hypToText)),
		score:         score,
		justification: justification,
	}
	for h, t := range hypToText {
		if h == nil || t == nil {
			continue
		}
		a.forward[h] = t
		a.pairs = append(a.pairs, AlignedPair{h, t})
	}
	sort.Slice(a.pairs, func(i, j int) bool {
		pi, pj := a.pairs[i], a.pairs[j]
		if pi.Hyp.Index != pj.Hyp.Index {
			return pi.Hyp.Index < pj.Hyp.Index
		}
		return pi.Text.Index < pj.Text.Index
	})
	return a
}

// Lookup returns the text vertex aligned to the given hypothesis vertex.
func (a *Alignment) Lookup(hyp *Node) (*Node, bool) {
	if a == nil {
		return nil, false
	}
	t, ok := a.forward[hyp]
	return t, ok
}

// Reverse returns every hypothesis vertex aligned to the given text vertex.
func (a *Alignment) Reverse(text *Node) []*Node {
	if a == nil {
		return nil
	}
	var hyps []*Node
	for _, p := range a.pairs {
		if p.Text == text {
			hyps = append(hyps, p.Hyp)
		}
	}
	return hyps
}

// PairAt returns the i-th pair in hypothesis order.
func (a *Alignment) PairAt(i int) AlignedPair {
	return a.pairs[i]
}

func (a *Alignment) Len() int {
	if a == nil {
		return 0
	}
	return len(a.pairs)
}

func (a *Alignment) Score() float64 {
	return a.score
}

func (a *Alignment) Justification() string {
	return a.justification
}

func (a *Alignment) String() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "score=%g", a.score)
	for _, p := range a.pairs {
		fmt.Fprintf(&b, " %v=>%v", p.Hyp, p.Text)
	}
	return b.String()
}
