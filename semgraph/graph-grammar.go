package semgraph

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// Compact graph text, one bracketed tree per root:
//
//	[ate/VBD-2 nsubj>Bill-1 obj>[muffins-4 compound>blueberry-3]]
//
// A token is word[/TAG][-index].  Writing the same index twice refers to the same vertex, which
// is how a token gets a second governor.
type GraphExpr struct {
	Trees []*TreeExpr `@@*`
}

type TreeExpr struct {
	Branch *BranchExpr `  "[" @@ "]"`
	Leaf   *string     `| @Token`
}

type BranchExpr struct {
	Head string     `@Token`
	Deps []*DepExpr `@@*`
}

type DepExpr struct {
	Reln string    `@Reln`
	Dep  *TreeExpr `@@`
}

var graphLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"Reln", `[^\s\[\]>]+>`},
	{"Token", `[^\s\[\]>]+`},
	{"Punct", `[\[\]]`},
	{"whitespace", `\s+`},
})

var parseGraphExpr = participle.MustBuild[GraphExpr](
	participle.Lexer(graphLexer),
)

type graphBuilder struct {
	g        *Graph
	pending  []*Node // tokens written without an index, numbered once all explicit indexes are known
	deferred []Edge  // edges touching a pending token
	maxIndex int
}

// Parse reads a graph written in compact bracket form.
func Parse(graphText string) (*Graph, error) {
	expr, err := parseGraphExpr.ParseString("", graphText)
	if err != nil {
		return nil, errors.Wrapf(err, "reading graph %q", graphText)
	}
	if len(expr.Trees) == 0 {
		return nil, ErrEmptyGraph
	}

	Xb := graphBuilder{
		g: New(),
	}
	roots := make([]*Node, 0, len(expr.Trees))
	for _, tree := range expr.Trees {
		root, err := Xb.applyTree(tree)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}

	// Unindexed tokens go after the highest explicit index, in order of appearance
	for _, n := range Xb.pending {
		Xb.maxIndex++
		n.Index = Xb.maxIndex
		if err = Xb.g.AddVertex(n); err != nil {
			return nil, err
		}
	}
	for _, e := range Xb.deferred {
		if _, err = Xb.g.AddEdge(e.Gov, e.Dep, e.Reln); err != nil {
			return nil, err
		}
	}

	if err = Xb.g.SetRoots(dedupe(roots)...); err != nil {
		return nil, err
	}
	return Xb.g, nil
}

// MustParse is like Parse but panics on error.
func MustParse(graphText string) *Graph {
	g, err := Parse(graphText)
	if err != nil {
		panic(err)
	}
	return g
}

func (Xb *graphBuilder) applyTree(tree *TreeExpr) (*Node, error) {
	if tree.Leaf != nil {
		return Xb.tallyToken(*tree.Leaf)
	}

	head, err := Xb.tallyToken(tree.Branch.Head)
	if err != nil {
		return nil, err
	}
	for _, dep := range tree.Branch.Deps {
		child, err := Xb.applyTree(dep.Dep)
		if err != nil {
			return nil, err
		}
		reln := strings.TrimSuffix(dep.Reln, ">")
		if err = Xb.addEdge(head, child, reln); err != nil {
			return nil, err
		}
	}
	return head, nil
}

// Edges touching an unindexed token wait until the token gets its index.
func (Xb *graphBuilder) addEdge(gov, dep *Node, reln string) error {
	if !Xb.g.ContainsVertex(gov) || !Xb.g.ContainsVertex(dep) {
		Xb.deferred = append(Xb.deferred, Edge{Gov: gov, Dep: dep, Reln: reln})
		return nil
	}
	_, err := Xb.g.AddEdge(gov, dep, reln)
	return err
}

func (Xb *graphBuilder) tallyToken(token string) (*Node, error) {
	word, tag, index, hasIndex, err := splitToken(token)
	if err != nil {
		return nil, err
	}

	if !hasIndex {
		n := NewNode(0, word)
		if tag != "" {
			n.SetAttr(AttrTag, tag)
		}
		Xb.pending = append(Xb.pending, n)
		return n, nil
	}

	if n := Xb.g.VertexByIndex(index); n != nil {
		if word != "" && word != n.Word {
			return nil, errors.Wrapf(ErrBadToken, "index %d used for both %q and %q", index, n.Word, word)
		}
		if tag != "" && n.Tag() == "" {
			n.SetAttr(AttrTag, tag)
		}
		return n, nil
	}

	n := NewNode(index, word)
	if tag != "" {
		n.SetAttr(AttrTag, tag)
	}
	if index > Xb.maxIndex {
		Xb.maxIndex = index
	}
	return n, Xb.g.AddVertex(n)
}

// splitToken splits word/TAG-index into its parts.  The index is the digits after the last '-'.
func splitToken(token string) (word, tag string, index int, hasIndex bool, err error) {
	word = token
	if dash := strings.LastIndexByte(word, '-'); dash > 0 && dash < len(word)-1 {
		if idx, convErr := strconv.Atoi(word[dash+1:]); convErr == nil {
			if idx < 1 {
				return "", "", 0, false, errors.Wrapf(ErrBadToken, "token %q: index must be >= 1", token)
			}
			index = idx
			hasIndex = true
			word = word[:dash]
		}
	}
	if slash := strings.LastIndexByte(word, '/'); slash > 0 && slash < len(word)-1 {
		tag = word[slash+1:]
		word = word[:slash]
	}
	if word == "" {
		return "", "", 0, false, errors.Wrapf(ErrBadToken, "token %q has no word", token)
	}
	return word, tag, index, hasIndex, nil
}

func dedupe(nodes []*Node) []*Node {
	seen := make(map[*Node]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
