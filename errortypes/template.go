package errortypes

import (
	"fmt"
)

// SyntaxError is raised while a template is prepared: malformed directive
// values, missing required values, bad assignment targets and invalid
// expressions.
type SyntaxError struct {
	Msg      string
	Filename string
	Lineno   int
	Offset   int
}

// NewSyntaxError returns a SyntaxError located at the given position.
func NewSyntaxError(file string, line, col int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{fmt.Sprintf(format, args...), file, line, col}
}

func (e *SyntaxError) Error() string {
	return positioned(e.Msg, e.Filename, e.Lineno)
}

func (e *SyntaxError) File() string { return e.Filename }
func (e *SyntaxError) Line() int    { return e.Lineno }
func (e *SyntaxError) Col() int     { return e.Offset }

// BadDirectiveError reports a name in the directive namespace that is not a
// known directive.
type BadDirectiveError struct {
	SyntaxError
	Name string
}

// NewBadDirectiveError returns a BadDirectiveError for the given directive
// name.
func NewBadDirectiveError(name, file string, line, col int) *BadDirectiveError {
	return &BadDirectiveError{
		SyntaxError: SyntaxError{fmt.Sprintf("bad directive %q", name), file, line, col},
		Name:        name,
	}
}

// RuntimeError is raised while a template renders, for directives used out of
// their required context or values of the wrong shape.
type RuntimeError struct {
	Msg      string
	Filename string
	Lineno   int
	Err      error // underlying cause, may be nil
}

// NewRuntimeError returns a RuntimeError at the given position.
func NewRuntimeError(file string, line int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...), Filename: file, Lineno: line}
}

// WrapRuntimeError returns a RuntimeError at the given position caused by err.
func WrapRuntimeError(err error, file string, line int, format string, args ...interface{}) *RuntimeError {
	var e = NewRuntimeError(file, line, format, args...)
	e.Err = err
	return e
}

func (e *RuntimeError) Error() string {
	var msg = e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return positioned(msg, e.Filename, e.Lineno)
}

func (e *RuntimeError) File() string  { return e.Filename }
func (e *RuntimeError) Line() int     { return e.Lineno }
func (e *RuntimeError) Col() int      { return 0 }
func (e *RuntimeError) Unwrap() error { return e.Err }

var (
	_ ErrFilePos = (*SyntaxError)(nil)
	_ ErrFilePos = (*BadDirectiveError)(nil)
	_ ErrFilePos = (*RuntimeError)(nil)
)

func positioned(msg, file string, line int) string {
	switch {
	case file == "" && line == 0:
		return msg
	case file == "":
		return fmt.Sprintf("line %d: %s", line, msg)
	}
	return fmt.Sprintf("%s:%d: %s", file, line, msg)
}
