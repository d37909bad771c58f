package semgraph

import "errors"

// Errors
var (
	ErrNilNode        = errors.New("nil node")
	ErrNotVertex      = errors.New("node is not a vertex of this graph")
	ErrDuplicateIndex = errors.New("vertex index already in use")
	ErrBadToken       = errors.New("bad token")
	ErrBadEdge        = errors.New("bad graph edge")
	ErrCyclic         = errors.New("graph has a cycle")
	ErrEmptyGraph     = errors.New("empty graph")
)
