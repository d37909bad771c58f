package semgrex

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// PatternExpr is the parse tree of a pattern:
//
//	{tag:/VB.*/}=verb >nsubj {}=subj ?>obj ({} >det {word:the}) : {ner:PERSON}
//
// Relations written one after another (A >x B >y C) all hang from the leading node; use
// parentheses to hang a relation from a target instead.
type PatternExpr struct {
	Parts []*SubNodeExpr `@@ ( ":" @@ )*`
}

type SubNodeExpr struct {
	Group *SubNodeExpr `(  "(" @@ ")"`
	Node  *ModNodeExpr ` | @@ )`
	Rels  *RelDisjExpr `@@?`
}

type RelDisjExpr struct {
	Conjs []*RelConjExpr `@@ ( "|" @@ )*`
}

type RelConjExpr struct {
	Rels []*ModRelExpr `@@ ( "&"? @@ )*`
}

type ModRelExpr struct {
	Mod   string        `@( "!" | "?" )?`
	Child *RelChildExpr `(  @@`
	Group *RelDisjExpr  ` | "[" @@ "]" )`
}

type RelChildExpr struct {
	Reln   *RelnExpr   `@@`
	Type   *TypeExpr   `@@?`
	Name   *string     `( "=" @Ident )?`
	Target *TargetExpr `@@?`
}

type RelnExpr struct {
	Range *string `@Range?`
	Op    string  `@Reln`
}

type TypeExpr struct {
	Regex *string `  @Regex`
	Ident *string `| @Ident`
}

type TargetExpr struct {
	Group *SubNodeExpr `  "(" @@ ")"`
	Node  *ModNodeExpr `| @@`
}

type ModNodeExpr struct {
	Neg   bool          `(  @"!"?`
	Desc  *DescExpr     `   @@ )`
	Coord *NodeDisjExpr `| ( "[" @@ "]" )`
}

type NodeDisjExpr struct {
	Conjs []*NodeConjExpr `@@ ( "|" @@ )*`
}

type NodeConjExpr struct {
	Nodes []*ModNodeExpr `@@ ( "&"? @@ )*`
}

type DescExpr struct {
	Braced *BracedExpr `(  "{" @@? "}"`
	Name   *string     `   ( "=" @Ident )? )`
	Link   *string     `| ( "=" @Ident )`
}

type BracedExpr struct {
	Special string      `  @( "$" | "#" )`
	Attrs   []*AttrExpr `| @@ ( ";" @@ )*`
}

// AttrExpr is "key:value".  An unquoted value may lex together with its key ("tag:NN").
type AttrExpr struct {
	Key   string     `@Ident`
	Value *ValueExpr `( ":" @@ )?`
}

type ValueExpr struct {
	Regex  *string      `(  @Regex`
	Groups []*GroupExpr `   @@* )`
	String *string      `| @String`
	Ident  *string      `| @Ident`
}

type GroupExpr struct {
	Group int    `"#" @Ident`
	Var   string `"%" @Ident`
}

var patternLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"whitespace", `\s+`},
	{"Regex", `/(\\.|[^/\\])*/i?`},
	{"String", `"(\\.|[^"\\])*"`},
	{"Range", `\d+,\d+`},
	{"Reln", `\$\+\+|\$--|\$\+|\$-|>>|<<|==|[<>.@]`},
	{"Ident", `[\w][\w\-']*(?::[\w\-']+)*`},
	{"Punct", `[{}\[\]();:|&!?=#%$]`},
})

var parsePatternExpr = participle.MustBuild[PatternExpr](
	participle.Lexer(patternLexer),
	participle.UseLookahead(4),
)

// patternBuilder turns a PatternExpr into the Expr tree the matcher runs.
type patternBuilder struct {
	env     *Env
	aligned bool
}

func parsePattern(text string, env *Env) (Expr, bool, error) {
	expr, err := parsePatternExpr.ParseString("", text)
	if err != nil {
		return nil, false, err
	}

	Xb := patternBuilder{
		env: env,
	}
	// relationFor panics only on symbols the lexer cannot produce
	root, err := Xb.buildRoot(expr)
	if err != nil {
		return nil, false, err
	}
	return root, Xb.aligned, nil
}

func (Xb *patternBuilder) buildRoot(expr *PatternExpr) (Expr, error) {
	parts := make([]Expr, 0, len(expr.Parts))
	for i, part := range expr.Parts {
		var reln *Relation
		if i == 0 {
			reln = relationFor("ROOT", AnyLabel, "")
		} else {
			reln = relationFor(":", AnyLabel, "")
		}
		sub, err := Xb.buildSubNode(part, reln)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub)
	}

	if Xb.aligned {
		parts[0].Relation().Kind = RelAlignedRoot
		parts[0].Relation().Symbol = "ALIGNED_ROOT"
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return &CoordinationPattern{
		Kind:      AllOf,
		Children:  parts,
		partition: true,
	}, nil
}

func (Xb *patternBuilder) buildSubNode(sn *SubNodeExpr, reln *Relation) (Expr, error) {
	var head Expr
	var err error
	if sn.Group != nil {
		head, err = Xb.buildSubNode(sn.Group, reln)
	} else {
		head, err = Xb.buildModNode(sn.Node, reln)
	}
	if err != nil {
		return nil, err
	}

	if sn.Rels != nil {
		rels, err := Xb.buildRelDisj(sn.Rels)
		if err != nil {
			return nil, err
		}
		attachChild(head, rels)
	}
	return head, nil
}

// attachChild hangs child from every node head can match.  Node alternatives share the child.
func attachChild(head Expr, child Expr) {
	switch X := head.(type) {
	case *NodePattern:
		if X.Child == nil {
			X.Child = child
		} else {
			X.Child = &CoordinationPattern{
				Kind:     AllOf,
				Children: []Expr{X.Child, child},
			}
		}
	case *CoordinationPattern:
		for _, alt := range X.Children {
			attachChild(alt, child)
		}
	}
}

// buildModNode builds a node description, or a node coordination whose alternatives each take reln.
func (Xb *patternBuilder) buildModNode(mn *ModNodeExpr, reln *Relation) (Expr, error) {
	if mn.Desc != nil {
		np, err := Xb.buildDesc(mn.Desc, reln)
		if err != nil {
			return nil, err
		}
		np.NegDesc = mn.Neg
		return np, nil
	}

	alts := make([]Expr, 0, len(mn.Coord.Conjs))
	for _, conj := range mn.Coord.Conjs {
		nodes := make([]Expr, 0, len(conj.Nodes))
		for _, node := range conj.Nodes {
			alt, err := Xb.buildModNode(node, reln)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, alt)
		}
		if len(nodes) == 1 {
			alts = append(alts, nodes[0])
		} else {
			alts = append(alts, &CoordinationPattern{
				Kind:      AllOf,
				NodeCoord: true,
				Children:  nodes,
			})
		}
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &CoordinationPattern{
		Kind:      AnyOf,
		NodeCoord: true,
		Children:  alts,
	}, nil
}

func (Xb *patternBuilder) buildRelDisj(rd *RelDisjExpr) (Expr, error) {
	conjs := make([]Expr, 0, len(rd.Conjs))
	for _, rc := range rd.Conjs {
		rels := make([]Expr, 0, len(rc.Rels))
		for _, mr := range rc.Rels {
			rel, err := Xb.buildModRel(mr)
			if err != nil {
				return nil, err
			}
			rels = append(rels, rel)
		}
		if len(rels) == 1 {
			conjs = append(conjs, rels[0])
		} else {
			conjs = append(conjs, &CoordinationPattern{
				Kind:     AllOf,
				Children: rels,
			})
		}
	}
	if len(conjs) == 1 {
		return conjs[0], nil
	}
	return &CoordinationPattern{
		Kind:     AnyOf,
		Children: conjs,
	}, nil
}

func (Xb *patternBuilder) buildModRel(mr *ModRelExpr) (Expr, error) {
	var expr Expr
	var err error
	if mr.Child != nil {
		expr, err = Xb.buildRelChild(mr.Child)
	} else {
		expr, err = Xb.buildRelDisj(mr.Group)
	}
	if err != nil {
		return nil, err
	}
	return applyMods(expr, mr.Mod == "!", mr.Mod == "?"), nil
}

// applyMods negates or makes optional the given element, wrapping it if it already carries a modifier.
func applyMods(expr Expr, negated, optional bool) Expr {
	if !negated && !optional {
		return expr
	}
	if expr.IsNegated() || expr.IsOptional() {
		expr = &CoordinationPattern{
			Kind:     AllOf,
			Children: []Expr{expr},
		}
	}
	expr.setMods(negated, optional)
	return expr
}

func (Xb *patternBuilder) buildRelChild(rc *RelChildExpr) (Expr, error) {
	typ := AnyLabel
	if rc.Type != nil {
		var err error
		if typ, err = buildLabel(rc.Type); err != nil {
			return nil, err
		}
	}

	relName := ""
	target := rc.Target
	if rc.Name != nil {
		if target == nil {
			// ">x =name": the name is the target
			target = &TargetExpr{
				Node: &ModNodeExpr{
					Desc: &DescExpr{Link: rc.Name},
				},
			}
		} else {
			relName = *rc.Name
		}
	}
	if target == nil {
		return nil, errors.Errorf("relation %q has no target", rc.Reln.Op)
	}

	reln, err := Xb.buildRelation(rc.Reln, typ, relName)
	if err != nil {
		return nil, err
	}
	if target.Group != nil {
		return Xb.buildSubNode(target.Group, reln)
	}
	return Xb.buildModNode(target.Node, reln)
}

func (Xb *patternBuilder) buildRelation(re *RelnExpr, typ LabelMatcher, name string) (*Relation, error) {
	var reln *Relation
	if re.Range != nil {
		bounds := strings.SplitN(*re.Range, ",", 2)
		minDepth, err1 := strconv.Atoi(bounds[0])
		maxDepth, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return nil, errors.Errorf("bad depth range %q", *re.Range)
		}
		var err error
		if reln, err = boundedRelationFor(re.Op, minDepth, maxDepth, typ, name); err != nil {
			return nil, err
		}
	} else {
		reln = relationFor(re.Op, typ, name)
	}

	switch reln.Kind {
	case RelGovernor, RelDependent, RelGrandParent, RelGrandKid, RelBoundedGrandParent, RelBoundedGrandKid:
	default:
		if !typ.IsWildcard() || name != "" {
			return nil, errors.Errorf("relation %q does not take an edge type or name", re.Op)
		}
	}
	if reln.Kind == RelAlignment {
		Xb.aligned = true
	}
	return reln, nil
}

func buildLabel(te *TypeExpr) (LabelMatcher, error) {
	if te.Ident != nil {
		return ExactLabel(*te.Ident), nil
	}
	expr, fold := unwrapRegex(*te.Regex)
	return RegexLabel(expr, fold)
}

// unwrapRegex strips the slashes (and trailing "i" flag) from a Regex token.
func unwrapRegex(token string) (expr string, fold bool) {
	if strings.HasSuffix(token, "/i") {
		return token[1 : len(token)-2], true
	}
	return token[1 : len(token)-1], false
}

func (Xb *patternBuilder) buildDesc(desc *DescExpr, reln *Relation) (*NodePattern, error) {
	np := &NodePattern{
		Reln: reln,
	}
	if desc.Link != nil {
		np.Name = *desc.Link
		np.Link = true
		return np, nil
	}
	if desc.Name != nil {
		np.Name = *desc.Name
	}
	if desc.Braced == nil {
		return np, nil
	}

	switch desc.Braced.Special {
	case "$":
		np.IsRoot = true
		return np, nil
	case "#":
		np.IsEmpty = true
		return np, nil
	}

	seen := make(map[string]bool, len(desc.Braced.Attrs))
	for _, ae := range desc.Braced.Attrs {
		am, err := Xb.buildAttr(ae)
		if err != nil {
			return nil, err
		}
		if seen[am.Key] {
			return nil, errors.Errorf("attribute %q given twice", am.Key)
		}
		seen[am.Key] = true
		np.Attrs = append(np.Attrs, am)
	}
	return np, nil
}

func (Xb *patternBuilder) buildAttr(ae *AttrExpr) (*AttrMatch, error) {
	key := ae.Key
	val := ae.Value

	if val == nil {
		colon := strings.IndexByte(key, ':')
		if colon < 0 {
			return nil, errors.Errorf("attribute %q has no value", key)
		}
		ident := key[colon+1:]
		key = key[:colon]
		val = &ValueExpr{Ident: &ident}
	}

	switch {
	case val.Regex != nil:
		expr, fold := unwrapRegex(*val.Regex)
		am, err := newAttrMatch(key, expr, true, fold, Xb.env)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", key)
		}
		for _, ge := range val.Groups {
			if ge.Group < 0 || ge.Group > am.re.NumSubexp() {
				return nil, errors.Errorf("attribute %q: no capture group %d", key, ge.Group)
			}
			am.Groups = append(am.Groups, VarGroup{Group: ge.Group, Var: ge.Var})
		}
		return am, nil

	case val.String != nil:
		str, err := strconv.Unquote(*val.String)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", key)
		}
		return newAttrMatch(key, str, false, false, Xb.env)

	default:
		return newAttrMatch(key, *val.Ident, false, false, Xb.env)
	}
}
