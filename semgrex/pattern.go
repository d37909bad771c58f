package semgrex

import (
	"strings"

	"github.com/2x3systems/semgrex/semgraph"
	"github.com/plan-systems/klog"
)

// Pattern is a compiled semgrex pattern.  It is immutable and may be shared across goroutines.
type Pattern struct {
	text    string
	root    Expr
	aligned bool // uses "@"
}

// CompileOpt configures Compile.
type CompileOpt func(*compileOpts)

type compileOpts struct {
	env *Env
}

// WithEnv resolves attribute keys through the given Env.
func WithEnv(env *Env) CompileOpt {
	return func(opts *compileOpts) {
		opts.env = env
	}
}

// MatchOpt configures a Matcher.
type MatchOpt func(*matchOpts)

type matchOpts struct {
	ignoreCase bool
}

// IgnoreCase makes literal and regex attribute values match regardless of case.
func IgnoreCase() MatchOpt {
	return func(opts *matchOpts) {
		opts.ignoreCase = true
	}
}

func buildMatchOpts(opts []MatchOpt) matchOpts {
	var mo matchOpts
	for _, opt := range opts {
		opt(&mo)
	}
	return mo
}

// Compile parses the given pattern text.  On failure the error is a *ParseError.
func Compile(patternText string, opts ...CompileOpt) (*Pattern, error) {
	var co compileOpts
	for _, opt := range opts {
		opt(&co)
	}
	if co.env == nil {
		co.env = NewEnv()
	}

	root, aligned, err := parsePattern(patternText, co.env)
	if err != nil {
		compileCount.WithLabelValues("error").Inc()
		klog.V(2).Infof("pattern %q: %v", patternText, err)
		return nil, &ParseError{
			Pattern: patternText,
			Err:     err,
		}
	}
	compileCount.WithLabelValues("ok").Inc()

	return &Pattern{
		text:    patternText,
		root:    root,
		aligned: aligned,
	}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(patternText string, opts ...CompileOpt) *Pattern {
	pat, err := Compile(patternText, opts...)
	if err != nil {
		panic(err)
	}
	return pat
}

// Matcher returns a fresh Matcher over g, anchored at g's first root.
func (pat *Pattern) Matcher(g *semgraph.Graph, opts ...MatchOpt) *Matcher {
	if g == nil {
		g = semgraph.New()
	}
	return newMatcher(pat, scope{g: g}, buildMatchOpts(opts))
}

// AlignedMatcher returns a fresh Matcher over a pair of aligned graphs.
//
// When hypToText is set the anchors are drawn from hyp and the first "@" crosses into txt;
// otherwise the anchors are drawn from txt and "@" crosses back into hyp.  Every "@" flips sides.
func (pat *Pattern) AlignedMatcher(hyp *semgraph.Graph, alignment *semgraph.Alignment, txt *semgraph.Graph, hypToText bool, opts ...MatchOpt) *Matcher {
	if hyp == nil {
		hyp = semgraph.New()
	}
	if txt == nil {
		txt = semgraph.New()
	}
	al := &alignedGraphs{
		hyp:       hyp,
		txt:       txt,
		alignment: alignment,
	}
	sc := scope{g: txt, hyp: false, al: al}
	if hypToText {
		sc = scope{g: hyp, hyp: true, al: al}
	}
	return newMatcher(pat, sc, buildMatchOpts(opts))
}

// Text returns the source this pattern was compiled from.
func (pat *Pattern) Text() string {
	return pat.text
}

// Root returns the top element of the compiled pattern.
func (pat *Pattern) Root() Expr {
	return pat.root
}

// UsesAlignment reports if the pattern contains the "@" relation.
func (pat *Pattern) UsesAlignment() bool {
	return pat.aligned
}

// String renders the compiled pattern; the result compiles to an equivalent pattern.
func (pat *Pattern) String() string {
	b := strings.Builder{}
	writeTop(&b, pat.root)
	return b.String()
}

func writeTop(b *strings.Builder, expr Expr) {
	switch X := expr.(type) {
	case *CoordinationPattern:
		if X.partition {
			for i, child := range X.Children {
				if i > 0 {
					b.WriteString(" : ")
				}
				writeTop(b, child)
			}
			return
		}
		writeNodeCoord(b, X)
		if child := X.sharedChild(); child != nil {
			b.WriteByte(' ')
			writeRel(b, child)
		}
	case *NodePattern:
		X.writeDesc(b)
		if X.Child != nil {
			b.WriteByte(' ')
			writeRel(b, X.Child)
		}
	}
}

func writeMods(b *strings.Builder, expr Expr) {
	if expr.IsNegated() {
		b.WriteByte('!')
	}
	if expr.IsOptional() {
		b.WriteByte('?')
	}
}

// writeRel renders an element hanging from a node: its relation followed by its target.
func writeRel(b *strings.Builder, expr Expr) {
	switch X := expr.(type) {
	case *NodePattern:
		writeMods(b, X)
		X.Reln.writeTo(b)
		b.WriteByte(' ')
		if X.Child == nil {
			X.writeDesc(b)
			return
		}
		b.WriteByte('(')
		X.writeDesc(b)
		b.WriteByte(' ')
		writeRel(b, X.Child)
		b.WriteByte(')')

	case *CoordinationPattern:
		if X.NodeCoord {
			writeMods(b, X)
			X.Relation().writeTo(b)
			b.WriteByte(' ')
			child := X.sharedChild()
			if child == nil {
				writeNodeCoord(b, X)
				return
			}
			b.WriteByte('(')
			writeNodeCoord(b, X)
			b.WriteByte(' ')
			writeRel(b, child)
			b.WriteByte(')')
			return
		}

		if X.Kind == AllOf && !X.Negated && !X.Optional {
			for i, child := range X.Children {
				if i > 0 {
					b.WriteByte(' ')
				}
				writeRel(b, child)
			}
			return
		}
		writeMods(b, X)
		b.WriteByte('[')
		for i, child := range X.Children {
			if i > 0 {
				b.WriteString(" " + X.Kind.String() + " ")
			}
			writeRel(b, child)
		}
		b.WriteByte(']')
	}
}

func writeNodeCoord(b *strings.Builder, cp *CoordinationPattern) {
	b.WriteByte('[')
	for i, child := range cp.Children {
		if i > 0 {
			b.WriteString(" " + cp.Kind.String() + " ")
		}
		switch X := child.(type) {
		case *NodePattern:
			X.writeDesc(b)
		case *CoordinationPattern:
			writeNodeCoord(b, X)
		}
	}
	b.WriteByte(']')
}
