// Package exprlang is the default expression dialect, built on
// github.com/expr-lang/expr.
//
// Expressions follow expr syntax: 'single' or "double" quoted strings,
// [lists], {'maps': 1}, a.b member access, a ?? b nil coalescing, and/or/not.
// Unbound names evaluate to nil.  Functions in the environment are called
// with the eval.Func convention; expr's own builtins such as len, upper,
// replace and string are available as functions.  A builtin name used as a
// plain variable, such as values in values['a'], refers to the data.
package exprlang

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/davidfraser/genshi/eval"
)

// Compiler compiles expr-lang expressions.  The zero value is ready to use.
type Compiler struct {
	// Options are passed to expr.Compile after the defaults.
	Options []expr.Option
}

// New returns a Compiler with the given extra options.
func New(opts ...expr.Option) *Compiler {
	return &Compiler{Options: opts}
}

// Compile implements eval.Compiler.
func (c *Compiler) Compile(src, filename string, line int) (eval.Expr, error) {
	var opts = []expr.Option{expr.AllowUndefinedVariables()}
	for _, name := range shadowedBuiltins(src) {
		opts = append(opts, expr.DisableBuiltin(name))
	}
	if c != nil {
		opts = append(opts, c.Options...)
	}

	var program, err = expr.Compile(src, opts...)
	if err != nil {
		var serr = &eval.SyntaxError{Msg: err.Error(), Filename: filename, Line: line}
		var ferr *file.Error
		if errors.As(err, &ferr) {
			serr.Msg = ferr.Message
			serr.Offset = ferr.Column
			if ferr.Line > 1 {
				serr.Line += ferr.Line - 1
			}
		}
		return nil, serr
	}
	return &compiled{src: src, filename: filename, line: line, program: program}, nil
}

// shadowedBuiltins returns the builtin names that src uses as variables
// rather than calls.
func shadowedBuiltins(src string) []string {
	var tree, err = parser.Parse(src)
	if err != nil {
		return nil
	}
	var v identVisitor
	ast.Walk(&tree.Node, &v)
	return v.names
}

type identVisitor struct {
	names []string
}

func (v *identVisitor) Visit(node *ast.Node) {
	var ident, ok = (*node).(*ast.IdentifierNode)
	if !ok {
		return
	}
	if _, isBuiltin := builtin.Index[ident.Value]; isBuiltin {
		v.names = append(v.names, ident.Value)
	}
}

type compiled struct {
	src      string
	filename string
	line     int
	program  *vm.Program
}

func (e *compiled) Source() string {
	return e.src
}

func (e *compiled) String() string {
	return fmt.Sprintf("Expression(%q)", e.src)
}

func (e *compiled) Eval(env map[string]any) (any, error) {
	var result, err = expr.Run(e.program, env)
	if err != nil {
		return nil, &eval.Error{Source: e.src, Filename: e.filename, Line: e.line, Err: err}
	}
	return result, nil
}
