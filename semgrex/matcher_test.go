package semgrex

import (
	"testing"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	muffinsText = "[ate/VBD-2 nsubj>Bill/NNP-1 obj>[muffins/NNS-4 compound>blueberry/NN-3]]"
	sawText     = "[saw-3 nsubj>I-1 advmod>really-2 obj>it-4 obl>today-5]"
)

// findWords runs Find to exhaustion, collecting the word bound to name at each match.
func findWords(t *testing.T, pattern string, g *semgraph.Graph, name string, opts ...MatchOpt) []string {
	t.Helper()
	pat, err := Compile(pattern)
	require.NoError(t, err, pattern)

	words := []string{}
	m := pat.Matcher(g, opts...)
	for m.Find() {
		if n := m.Node(name); n != nil {
			words = append(words, n.Word)
		} else {
			words = append(words, "")
		}
	}
	return words
}

func TestGovernorDependentSymmetry(t *testing.T) {
	g := semgraph.MustParse(muffinsText)
	ate := g.VertexByIndex(2)
	bill := g.VertexByIndex(1)

	for _, pattern := range []string{
		"{}=g >nsubj {}=d",
		"{}=d <nsubj {}=g",
	} {
		m := MustCompile(pattern).Matcher(g)
		require.True(t, m.Find(), pattern)
		assert.Equal(t, ate, m.Node("g"), pattern)
		assert.Equal(t, bill, m.Node("d"), pattern)
		assert.Equal(t, []string{"d", "g"}, m.NodeNames())
		assert.False(t, m.Find(), pattern)
	}
}

func TestDeterminism(t *testing.T) {
	g := semgraph.MustParse(muffinsText)
	pat := MustCompile("{tag:/VB.*/}=v >obj ({} >compound {}=c)")

	for i := 0; i < 3; i++ {
		m := pat.Matcher(g)
		require.True(t, m.Matches())
		assert.Equal(t, "ate", m.Match().Word)
		assert.Equal(t, "blueberry", m.Node("c").Word)
	}

	// Matches only tries the first root
	assert.False(t, MustCompile("{word:Bill}").Matcher(g).Matches())
}

func TestNegation(t *testing.T) {
	g := semgraph.MustParse(muffinsText)

	assert.Equal(t, []string{"ate"}, findWords(t, "{}=n >obj {}", g, "n"))
	assert.Equal(t, []string{"Bill", "muffins", "blueberry"}, findWords(t, "{}=n !>obj {}", g, "n"))

	// a negated branch never leaves bindings behind
	m := MustCompile("{}=n !>nsubj {}=x").Matcher(g)
	count := 0
	for m.Find() {
		count++
		assert.Nil(t, m.Node("x"))
		assert.Equal(t, []string{"n"}, m.NodeNames())
	}
	assert.Equal(t, 3, count)
}

func TestOptional(t *testing.T) {
	g := semgraph.MustParse(muffinsText)

	assert.Equal(t, []string{"muffins", "", "", ""}, findWords(t, "{}=n ?>obj {}=o", g, "o"))

	m := MustCompile("{word:Bill}=n ?>obj {}=o").Matcher(g)
	require.True(t, m.Find())
	assert.Nil(t, m.Node("o"))
	assert.False(t, m.Find())

	// a candidate exists but its own child fails: still one match, nothing bound below it
	m = MustCompile("{word:ate}=n ?>obj ({}=o >det {}=d)").Matcher(g)
	require.True(t, m.Find())
	assert.Equal(t, "ate", m.Match().Word)
	assert.Nil(t, m.Node("o"))
	assert.Nil(t, m.Node("d"))
	assert.Equal(t, []string{"n"}, m.NodeNames())
	assert.False(t, m.Find())
}

func TestBackreference(t *testing.T) {
	pattern := "{}=x >> ({word:ran} > {}=y) >> ({word:swam} > {}=y)"

	shared := semgraph.MustParse("[root-1 dep>[ran-2 nsubj>Bill-3 conj>[swam-4 nsubj>Bill-3]]]")
	m := MustCompile(pattern).Matcher(shared)
	require.True(t, m.Find())
	assert.Equal(t, "root", m.Node("x").Word)
	assert.Equal(t, shared.VertexByIndex(3), m.Node("y"))
	assert.False(t, m.Find())

	distinct := semgraph.MustParse("[root-1 dep>[ran-2 nsubj>Bill-3 conj>[swam-4 nsubj>Sue-5]]]")
	assert.Empty(t, findWords(t, pattern, distinct, "y"))
}

func TestLinks(t *testing.T) {
	g := semgraph.MustParse(sawText)

	assert.Empty(t, findWords(t, "{} >nsubj =x >obj =x", g, "x"))
	assert.Equal(t, []string{"I"}, findWords(t, "{} >nsubj =x >nsubj =x", g, "x"))
	assert.Equal(t, []string{"saw"}, findWords(t, "{}=a >obj {word:it} == =a", g, "a"))
}

func TestDepthBounds(t *testing.T) {
	g := semgraph.MustParse("[root-1 x>[a-2 x>[b-3 x>[c-4 x>[d-5 x>e-6]]]]]")

	assert.Equal(t, []string{"b", "c", "d"}, findWords(t, "{word:root} 2,4>> {}=n", g, "n"))
	assert.Equal(t, []string{"a", "root"}, findWords(t, "{word:c} 2,3<< {}=n", g, "n"))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, findWords(t, "{word:root} >> {}=n", g, "n"))
}

func TestDepthBoundsSecondPath(t *testing.T) {
	// t is reached at depth 2 twice; only the second edge carries the wanted label
	g := semgraph.MustParse("[r-1 a>[p-2 bad>t-4] a>[q-3 good>t-4]]")
	assert.Equal(t, []string{"t"}, findWords(t, "{word:r} 2,2>>good {}=n", g, "n"))
}

func TestClosureTypeDoesNotPrune(t *testing.T) {
	g := semgraph.MustParse("[a-1 x>[b-2 y>c-3]]")
	assert.Equal(t, []string{"c"}, findWords(t, "{word:a} >>y {}=n", g, "n"))
	assert.Equal(t, []string{"a"}, findWords(t, "{word:c} <<x {}=n", g, "n"))
}

func TestDeMorgan(t *testing.T) {
	g := semgraph.MustParse(muffinsText)

	lhs := findWords(t, "{}=n ![>nsubj {} | >compound {}]", g, "n")
	rhs := findWords(t, "{}=n [!>nsubj {} & !>compound {}]", g, "n")
	assert.Equal(t, []string{"Bill", "blueberry"}, lhs)
	assert.Equal(t, lhs, rhs)
}

// A negated conjunction fails only when every child matches under one shared set of bindings.
func TestNegatedConjunctionJoint(t *testing.T) {
	pattern := "{}=n ![>nsubj {}=x & >obj =x]"

	// saw has a subject and an object, but never the same node for both
	g := semgraph.MustParse(sawText)
	assert.Equal(t, []string{"saw", "I", "really", "it", "today"}, findWords(t, pattern, g, "n"))

	reflexive := semgraph.MustParse("[saw-2 nsubj>it-1 obj>it-1]")
	assert.Equal(t, []string{"it"}, findWords(t, pattern, reflexive, "n"))

	m := MustCompile(pattern).Matcher(g)
	require.True(t, m.Find())
	assert.Nil(t, m.Node("x"))
}

func TestDoubleNegation(t *testing.T) {
	g := semgraph.MustParse(sawText)
	assert.Equal(t, []string{"saw"}, findWords(t, "{}=n ![!>nsubj {}]", g, "n"))
}

func TestCoordination(t *testing.T) {
	g := semgraph.MustParse(sawText)

	assert.Equal(t, []string{"it", "today"}, findWords(t, "{word:saw} > [{word:it}=x | {word:today}=x]", g, "x"))
	assert.Equal(t, []string{"I", "it"}, findWords(t, "{word:saw} [>nsubj {}=x | >obj {}=x]", g, "x"))
	assert.Equal(t, []string{"saw"}, findWords(t, "[{word:saw}=v | {word:ran}=v] >nsubj {}", g, "v"))

	m := MustCompile("{word:saw} ?[>nsubj {word:you}=x & >obj {}=y]").Matcher(g)
	require.True(t, m.Find())
	assert.Nil(t, m.Node("y"))
	assert.False(t, m.Find())
}

func TestNegatedCoordinationMatch(t *testing.T) {
	g := semgraph.MustParse(sawText)
	st := &matchState{env: newBindings()}
	cp := &CoordinationPattern{
		Kind:     AnyOf,
		Negated:  true,
		Children: []Expr{MustCompile("{word:nope}").Root()},
	}
	cs := newCoordSearch(cp, st, scope{g: g})
	cs.reset(g.FirstRoot())
	assert.True(t, cs.advance())
	assert.False(t, cs.advance())
	assert.Panics(t, func() { cs.match() })
}

func TestPartition(t *testing.T) {
	g := semgraph.MustParse(sawText)

	m := MustCompile("{word:saw}=a : {word:today}=b").Matcher(g)
	require.True(t, m.Find())
	assert.Equal(t, "saw", m.Match().Word)
	assert.Equal(t, "today", m.Node("b").Word)
	assert.False(t, m.Find())

	assert.Empty(t, findWords(t, "{word:saw}=a : {word:nowhere}", g, "a"))
}

func TestNamedRelations(t *testing.T) {
	g := semgraph.MustParse(sawText)

	m := MustCompile("{word:saw} >=r {word:it}").Matcher(g)
	require.True(t, m.Find())
	assert.Equal(t, "obj", m.RelnString("r"))
	assert.Equal(t, []string{"r"}, m.RelationNames())

	assert.Empty(t, findWords(t, "{} >=r {word:I} >=r {word:it}", g, "r"))
}

func TestVariableGroups(t *testing.T) {
	g := semgraph.MustParse("[jumping-1 dep>jumped-2 dep>walked-3]")

	m := MustCompile("{word:/(\\w+)ing/#1%stem} > {word:/(\\w+)ed/#1%stem}=d").Matcher(g)
	require.True(t, m.Find())
	assert.Equal(t, "jumped", m.Node("d").Word)
	assert.Equal(t, "jump", m.VariableString("stem"))
	assert.False(t, m.Find())
	assert.Equal(t, "", m.VariableString("stem"))
}

func TestSpecialDescriptions(t *testing.T) {
	g := semgraph.MustParse(sawText)

	assert.Equal(t, []string{"saw"}, findWords(t, "{$}=r", g, "r"))
	assert.Equal(t, []string{"I"}, findWords(t, "{word:saw} > !{word:/[a-z]+/}=x", g, "x"))

	blank := semgraph.New()
	_, err := blank.AddEdge(semgraph.NewNode(1, "gap"), semgraph.NewNode(2, ""), "dep")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, findWords(t, "{word:gap} > {#}=e", blank, "e"))
	assert.Equal(t, []string{"gap"}, findWords(t, "!{#}=e", blank, "e"))
}

func TestIgnoreCaseAndEnv(t *testing.T) {
	g := semgraph.MustParse(sawText)

	assert.Empty(t, findWords(t, "{word:i}=x", g, "x"))
	assert.Equal(t, []string{"I"}, findWords(t, "{word:i}=x", g, "x", IgnoreCase()))
	assert.Equal(t, []string{"I"}, findWords(t, "{word:/i/}=x", g, "x", IgnoreCase()))
	assert.Equal(t, []string{"I"}, findWords(t, "{word:/i/i}=x", g, "x"))

	env := NewEnv()
	env.Bind("len", func(n *semgraph.Node) (string, bool) {
		return string(rune('0' + len(n.Word))), true
	})
	pat, err := Compile("{len:5}=x", WithEnv(env))
	require.NoError(t, err)
	m := pat.Matcher(g)
	require.True(t, m.Find())
	assert.Equal(t, "today", m.Node("x").Word)
	assert.False(t, m.Find())

	// keys outside the table read the node's own attributes
	g.VertexByIndex(4).SetAttr("case", "acc")
	assert.Equal(t, []string{"it"}, findWords(t, "{case:acc}=x", g, "x"))
}

func TestAlignment(t *testing.T) {
	hyp := semgraph.MustParse("[sleeps-2 nsubj>cat-1]")
	txt := semgraph.MustParse("[sleeping-3 nsubj>cat-2 aux>is-1]")
	h1, h2 := hyp.VertexByIndex(1), hyp.VertexByIndex(2)
	t2, t3 := txt.VertexByIndex(2), txt.VertexByIndex(3)
	al := semgraph.NewAlignment(map[*semgraph.Node]*semgraph.Node{h1: t2, h2: t3}, 1, "test")

	pat := MustCompile("{}=a @ {}=b")
	assert.True(t, pat.UsesAlignment())

	m := pat.AlignedMatcher(hyp, al, txt, true)
	var pairs [][2]*semgraph.Node
	for m.Find() {
		pairs = append(pairs, [2]*semgraph.Node{m.Node("a"), m.Node("b")})
	}
	assert.Equal(t, [][2]*semgraph.Node{{h2, t3}, {h1, t2}}, pairs)

	// text -> hypothesis
	m = MustCompile("{word:cat}=b @ {}=a").AlignedMatcher(hyp, al, txt, false)
	require.True(t, m.Find())
	assert.Equal(t, t2, m.Node("b"))
	assert.Equal(t, h1, m.Node("a"))

	// every "@" flips the graph the next relation walks
	m = MustCompile("{}=a @ ({}=b >nsubj {}=c)").AlignedMatcher(hyp, al, txt, true)
	require.True(t, m.Find())
	assert.Equal(t, t2, m.Node("c"))

	// an alignment into a node outside the text graph yields nothing
	ghost := semgraph.NewNode(9, "ghost")
	bad := semgraph.NewAlignment(map[*semgraph.Node]*semgraph.Node{h1: ghost}, 0, "")
	assert.False(t, MustCompile("{word:cat}=a @ {}=b").AlignedMatcher(hyp, bad, txt, true).Find())

	// without an alignment "@" never matches
	assert.False(t, pat.Matcher(hyp).Find())
}

func TestFindNextMatchingNode(t *testing.T) {
	g := semgraph.MustParse(muffinsText)
	pat := MustCompile("{}=a >> {}=d")

	count := 0
	for m := pat.Matcher(g); m.Find(); {
		count++
	}
	assert.Equal(t, 4, count)

	var anchors []string
	m := pat.Matcher(g)
	for m.FindNextMatchingNode() {
		anchors = append(anchors, m.Match().Word)
	}
	assert.Equal(t, []string{"ate", "muffins"}, anchors)

	// never more distinct anchors than vertices
	m = MustCompile("{}").Matcher(g)
	seen := map[*semgraph.Node]bool{}
	for m.FindNextMatchingNode() {
		assert.False(t, seen[m.Match()])
		seen[m.Match()] = true
	}
	assert.Len(t, seen, g.VertexCount())
}

func TestCyclicGraphAnchors(t *testing.T) {
	g := semgraph.New()
	a := semgraph.NewNode(1, "a")
	b := semgraph.NewNode(2, "b")
	_, _ = g.AddEdge(a, b, "x")
	_, _ = g.AddEdge(b, a, "y")

	assert.Equal(t, []string{"b", "a"}, findWords(t, "{}=g > {}=d", g, "d"))
}

func TestEmptyGraph(t *testing.T) {
	m := MustCompile("{}").Matcher(semgraph.New())
	assert.False(t, m.Matches())
	assert.False(t, m.Find())
	assert.Nil(t, m.Match())
}
