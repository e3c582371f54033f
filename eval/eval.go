// Package eval defines how templates talk to an expression language, and
// parses the small assignment grammar that directives use for loop targets,
// variable bindings and function signatures.
//
// An expression dialect implements Compiler.  The template engine compiles
// every expression once when a template is prepared and evaluates it against
// a flat environment built from the render context on each use.  Callables
// placed in the environment, such as functions defined in templates, are
// Funcs; keyword arguments are passed to them as a trailing Kwargs value.
package eval

import (
	"fmt"
)

// Expr is a compiled expression.  It must be safe for concurrent use.
type Expr interface {
	// Source returns the text the expression was compiled from.
	Source() string

	// Eval evaluates the expression.  Names that are not bound in env
	// evaluate to nil.
	Eval(env map[string]any) (any, error)
}

// Compiler compiles expression source.  Malformed source results in a
// *SyntaxError.
type Compiler interface {
	Compile(src, filename string, line int) (Expr, error)
}

// Func is the calling convention shared by builtins, template functions and
// the expression dialects.  A trailing Kwargs argument carries keyword
// arguments.
type Func func(args ...any) (any, error)

// Kwargs holds the keyword arguments of a call.
type Kwargs map[string]any

// SplitKwargs separates a trailing Kwargs from the positional arguments.
func SplitKwargs(args []any) ([]any, Kwargs) {
	if n := len(args); n > 0 {
		if kw, ok := args[n-1].(Kwargs); ok {
			return args[:n-1], kw
		}
	}
	return args, nil
}

// SyntaxError reports malformed expression or assignment source.  Offset is
// the 0-based position of the problem within the source.
type SyntaxError struct {
	Msg      string
	Filename string
	Line     int
	Offset   int
}

func (e *SyntaxError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s (offset %d)", e.Msg, e.Offset)
	}
	return fmt.Sprintf("%s:%d: %s (offset %d)", e.Filename, e.Line, e.Msg, e.Offset)
}

// Error reports a failure while evaluating an expression.
type Error struct {
	Source   string
	Filename string
	Line     int
	Err      error
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("evaluating %q: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s:%d: evaluating %q: %v", e.Filename, e.Line, e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
