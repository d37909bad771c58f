package semgrex

import "errors"

// Errors
var (
	ErrPatternParse     = errors.New("pattern parse error")
	ErrUnknownRelation  = errors.New("unknown relation")
	ErrVariableConflict = errors.New("variable already bound to a different value")
	ErrNoMatchDefined   = errors.New("no match is defined for this matcher state")
	ErrUndefinedMacro   = errors.New("undefined macro")
	ErrBadMacro         = errors.New("bad macro definition")
	ErrNilGraph         = errors.New("nil graph")
)

// ParseError reports a pattern that could not be compiled.
//
// errors.Is(err, ErrPatternParse) holds for every ParseError; Cause() / Unwrap() return the underlying failure.
type ParseError struct {
	Pattern string
	Err     error
}

func (e *ParseError) Error() string {
	return ErrPatternParse.Error() + ": " + e.Pattern + ": " + e.Err.Error()
}

func (e *ParseError) Cause() error  { return e.Err }
func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return target == ErrPatternParse
}
