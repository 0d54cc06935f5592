package expr

import (
	"errors"
	"fmt"
)

// ErrQuietStop signals that the run should terminate immediately but
// successfully. It is raised instead of MissingFileError when quiet mode is
// active and is the only condition the interpreter recovers from.
var ErrQuietStop = errors.New("quiet stop requested")

// SyntaxError reports a malformed expression: unbalanced parentheses, an
// empty operand, a dangling operator, or nesting beyond the depth limit.
type SyntaxError struct {
	Expr string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Expr == "" {
		return "syntax error: " + e.Msg
	}
	return fmt.Sprintf("syntax error in %q: %s", e.Expr, e.Msg)
}

// ResolutionError reports a token that is neither a number, a bound
// variable, a grid filename, nor a registered function.
type ResolutionError struct {
	Token string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve token %q: not a number, variable, grid file or function", e.Token)
}

// MissingFileError reports a referenced grid file that does not exist.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("grid file %q not found", e.Path)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// TypeError reports an argument of the wrong kind passed to a named
// function, such as a grid where a constant is required.
type TypeError struct {
	Func string
	Arg  int // 1-based argument position
	Msg  string
}

func (e *TypeError) Error() string {
	if e.Arg > 0 {
		return fmt.Sprintf("%s(): argument %d: %s", e.Func, e.Arg, e.Msg)
	}
	return fmt.Sprintf("%s(): %s", e.Func, e.Msg)
}
