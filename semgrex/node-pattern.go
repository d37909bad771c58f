package semgrex

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/2x3systems/semgrex/semgraph"
)

// wildcard is the attribute value (and relation type) matching anything.
const wildcard = "__"

// Expr is a compiled pattern element, either a *NodePattern or a *CoordinationPattern.
type Expr interface {
	// Relation returns the relation reaching this element from its parent.
	Relation() *Relation

	// IsNegated reports if this element succeeds only when its positive form has no match.
	IsNegated() bool

	// IsOptional reports if this element succeeds (without bindings) when its positive form has no match.
	IsOptional() bool

	setMods(negated, optional bool)
}

type attrKind uint8

const (
	attrAny attrKind = iota
	attrLiteral
	attrRegex
)

// VarGroup binds regex capture group Group to the variable Var.
type VarGroup struct {
	Group int
	Var   string
}

// AttrMatch is one "key:value" predicate of a node description.
type AttrMatch struct {
	Key    string
	Value  string // literal value or regex source
	Fold   bool   // regex written /.../i
	Groups []VarGroup

	kind   attrKind
	acc    Accessor
	re     *regexp.Regexp // case-sensitive form
	reFold *regexp.Regexp // case-insensitive form
}

// compileWhole compiles expr so that it must match an entire string.
func compileWhole(expr string, ignoreCase bool) (*regexp.Regexp, error) {
	src := "^(?:" + expr + ")$"
	if ignoreCase {
		src = "(?i)" + src
	}
	return regexp.Compile(src)
}

func newAttrMatch(key, value string, isRegex, fold bool, env *Env) (*AttrMatch, error) {
	am := &AttrMatch{
		Key:   key,
		Value: value,
		Fold:  fold,
		acc:   env.Resolve(key),
	}
	switch {
	case !isRegex && value == wildcard:
		am.kind = attrAny
	case !isRegex:
		am.kind = attrLiteral
	default:
		am.kind = attrRegex
		var err error
		if am.reFold, err = compileWhole(value, true); err != nil {
			return nil, err
		}
		if fold {
			am.re = am.reFold
		} else if am.re, err = compileWhole(value, false); err != nil {
			return nil, err
		}
	}
	return am, nil
}

// match tests a node value, returning the regex submatches when the attribute captures variables.
func (am *AttrMatch) match(val string, ignoreCase bool) (bool, []string) {
	switch am.kind {
	case attrAny:
		return true, nil
	case attrLiteral:
		if ignoreCase {
			return strings.EqualFold(am.Value, val), nil
		}
		return am.Value == val, nil
	}

	re := am.re
	if ignoreCase {
		re = am.reFold
	}
	if len(am.Groups) == 0 {
		return re.MatchString(val), nil
	}
	sub := re.FindStringSubmatch(val)
	return sub != nil, sub
}

func (am *AttrMatch) writeTo(b *strings.Builder) {
	b.WriteString(am.Key)
	b.WriteByte(':')
	switch am.kind {
	case attrAny:
		b.WriteString(wildcard)
	case attrLiteral:
		if identRegex.MatchString(am.Value) {
			b.WriteString(am.Value)
		} else {
			b.WriteString(strconv.Quote(am.Value))
		}
	case attrRegex:
		b.WriteByte('/')
		b.WriteString(am.Value)
		b.WriteByte('/')
		if am.Fold {
			b.WriteByte('i')
		}
		for _, vg := range am.Groups {
			b.WriteByte('#')
			b.WriteString(strconv.Itoa(vg.Group))
			b.WriteByte('%')
			b.WriteString(vg.Var)
		}
	}
}

var identRegex = regexp.MustCompile(`^[\w][\w\-']*(?::[\w\-']+)*$`)

// NodePattern describes one graph node: attribute predicates (or a root / empty marker), the
// relation reaching it from its parent, a capture name, and at most one child element
// applied from the node it matches.
type NodePattern struct {
	Reln     *Relation
	Attrs    []*AttrMatch
	NegDesc  bool // "!{...}": the node exists but its description does not hold
	Negated  bool // "!" before the relation
	Optional bool // "?" before the relation
	Name     string
	Link     bool // bare "=name"
	IsRoot   bool // "{$}"
	IsEmpty  bool // "{#}"
	Child    Expr
}

func (np *NodePattern) Relation() *Relation { return np.Reln }
func (np *NodePattern) IsNegated() bool     { return np.Negated }
func (np *NodePattern) IsOptional() bool    { return np.Optional }

func (np *NodePattern) setMods(negated, optional bool) {
	np.Negated = negated
	np.Optional = optional
}

// capture is one variable binding produced by a successful attribute match.
type capture struct {
	name string
	val  string
}

// NodeAttrMatch reports if n satisfies this description in g.
func (np *NodePattern) NodeAttrMatch(n *semgraph.Node, g *semgraph.Graph, ignoreCase bool) bool {
	ok, _ := np.attrMatch(n, g, ignoreCase, nil)
	return ok
}

// attrMatch tests every attribute of the description against n.  Regex captures must agree with
// the variables already bound in vars and with each other; the captures are returned for commit.
func (np *NodePattern) attrMatch(n *semgraph.Node, g *semgraph.Graph, ignoreCase bool, vars *VariableStrings) (bool, []capture) {
	switch {
	case np.IsRoot:
		return g.IsRoot(n) != np.NegDesc, nil
	case np.IsEmpty:
		return n.IsEmpty() != np.NegDesc, nil
	}

	var caps []capture
	matched := true
	for _, am := range np.Attrs {
		val, present := am.acc(n)
		if !present {
			matched = false
			break
		}
		ok, sub := am.match(val, ignoreCase)
		if ok {
			caps, ok = addCaptures(caps, am.Groups, sub, vars)
		}
		if !ok {
			matched = false
			break
		}
	}

	if np.NegDesc {
		return !matched, nil
	}
	if !matched {
		return false, nil
	}
	return true, caps
}

func addCaptures(caps []capture, groups []VarGroup, sub []string, vars *VariableStrings) ([]capture, bool) {
	for _, vg := range groups {
		if vg.Group >= len(sub) {
			return caps, false
		}
		val := sub[vg.Group]
		if vars != nil {
			if bound, ok := vars.String(vg.Var); ok && bound != val {
				return caps, false
			}
		}
		for _, c := range caps {
			if c.name == vg.Var && c.val != val {
				return caps, false
			}
		}
		caps = append(caps, capture{vg.Var, val})
	}
	return caps, true
}

func (np *NodePattern) writeDesc(b *strings.Builder) {
	if np.Link {
		b.WriteByte('=')
		b.WriteString(np.Name)
		return
	}
	if np.NegDesc {
		b.WriteByte('!')
	}
	switch {
	case np.IsRoot:
		b.WriteString("{$}")
	case np.IsEmpty:
		b.WriteString("{#}")
	default:
		b.WriteByte('{')
		for i, am := range np.Attrs {
			if i > 0 {
				b.WriteByte(';')
			}
			am.writeTo(b)
		}
		b.WriteByte('}')
	}
	if np.Name != "" {
		b.WriteByte('=')
		b.WriteString(np.Name)
	}
}
