package semgrex

// CoordKind says how the children of a CoordinationPattern combine.
type CoordKind uint8

const (
	AllOf CoordKind = iota // every child must match at once
	AnyOf                  // some child must match
)

func (kind CoordKind) String() string {
	if kind == AllOf {
		return "&"
	}
	return "|"
}

// CoordinationPattern combines sibling elements.
//
// In a node coordination ("[{A} | {B}]") every child is a node alternative sharing the same
// incoming relation and downstream child.  In a relation coordination ("{A} >x {B} >y {C}",
// "{A} [>x {B} | >y {C}]") every child carries its own relation from the same node.
type CoordinationPattern struct {
	Kind      CoordKind
	Negated   bool
	Optional  bool
	NodeCoord bool
	Children  []Expr

	partition bool // top level "A : B"
}

// Relation returns the relation shared by the children of a node coordination, or nil.
func (cp *CoordinationPattern) Relation() *Relation {
	if cp.NodeCoord && len(cp.Children) > 0 {
		return cp.Children[0].Relation()
	}
	return nil
}

func (cp *CoordinationPattern) IsNegated() bool  { return cp.Negated }
func (cp *CoordinationPattern) IsOptional() bool { return cp.Optional }

func (cp *CoordinationPattern) setMods(negated, optional bool) {
	cp.Negated = negated
	cp.Optional = optional
}

// sharedChild returns the downstream element shared by the alternatives of a node coordination.
func (cp *CoordinationPattern) sharedChild() Expr {
	for _, child := range cp.Children {
		switch X := child.(type) {
		case *NodePattern:
			return X.Child
		case *CoordinationPattern:
			return X.sharedChild()
		}
	}
	return nil
}
