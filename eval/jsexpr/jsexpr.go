// Package jsexpr is a JavaScript expression dialect built on
// github.com/robertkrimen/otto.
//
// Each evaluation runs in a fresh interpreter with the environment bound as
// globals; eval.Func values become JavaScript functions.  Unlike the default
// dialect, referencing an unbound name is an error; use defined('name') to
// test for one.  Go values that JavaScript has
// no equivalent for, such as the event streams returned by template
// functions, pass through scripts unchanged.
package jsexpr

import (
	"fmt"
	"reflect"

	"github.com/robertkrimen/otto"

	"github.com/davidfraser/genshi/data"
	"github.com/davidfraser/genshi/eval"
)

// Compiler compiles JavaScript expressions.
type Compiler struct{}

// New returns a JavaScript Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile implements eval.Compiler.
func (c *Compiler) Compile(src, filename string, line int) (eval.Expr, error) {
	// parenthesized so that object literals are not parsed as blocks
	var script, err = otto.New().Compile(filename, "("+src+"\n)")
	if err != nil {
		return nil, &eval.SyntaxError{Msg: err.Error(), Filename: filename, Line: line}
	}
	return &compiled{src: src, filename: filename, line: line, script: script}, nil
}

type compiled struct {
	src      string
	filename string
	line     int
	script   *otto.Script
}

func (e *compiled) Source() string {
	return e.src
}

func (e *compiled) Eval(env map[string]any) (result any, err error) {
	var vm = otto.New()
	defer func() {
		if r := recover(); r != nil {
			err = &eval.Error{Source: e.src, Filename: e.filename, Line: e.line, Err: fmt.Errorf("%v", r)}
		}
	}()
	for name, value := range env {
		if err := vm.Set(name, toJS(vm, value)); err != nil {
			return nil, &eval.Error{Source: e.src, Filename: e.filename, Line: e.line, Err: err}
		}
	}
	var value, runErr = vm.Run(e.script)
	if runErr != nil {
		return nil, &eval.Error{Source: e.src, Filename: e.filename, Line: e.line, Err: runErr}
	}
	return fromJS(value)
}

// opaque carries a Go value through a script.  otto exports a struct pointer
// as itself.
type opaque struct {
	Value any
}

// toJS prepares a Go value for binding into a script.
func toJS(vm *otto.Otto, v any) any {
	switch v := v.(type) {
	case nil, bool, string, int, int64, float64, data.List, data.Map:
		return v
	case eval.Func:
		return wrapFunc(vm, v)
	case func(...any) (any, error):
		return wrapFunc(vm, v)
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32:
		return v
	}
	return &opaque{v}
}

// wrapFunc exposes fn to scripts.
func wrapFunc(vm *otto.Otto, fn eval.Func) func(otto.FunctionCall) otto.Value {
	return func(call otto.FunctionCall) otto.Value {
		var args = make([]any, len(call.ArgumentList))
		for i, arg := range call.ArgumentList {
			var v, err = fromJS(arg)
			if err != nil {
				panic(vm.MakeCustomError("TypeError", err.Error()))
			}
			args[i] = v
		}
		var result, err = fn(args...)
		if err != nil {
			panic(vm.MakeCustomError("Error", err.Error()))
		}
		var value, verr = vm.ToValue(toJS(vm, result))
		if verr != nil {
			panic(vm.MakeCustomError("TypeError", verr.Error()))
		}
		return value
	}
}

// fromJS converts a script value back to Go, unwrapping opaque values.
func fromJS(value otto.Value) (any, error) {
	if value.IsUndefined() || value.IsNull() {
		return nil, nil
	}
	var v, err = value.Export()
	if err != nil {
		return nil, err
	}
	return unbox(v), nil
}

func unbox(v any) any {
	switch v := v.(type) {
	case *opaque:
		return v.Value
	case []any:
		var out = make([]any, len(v))
		for i, item := range v {
			out[i] = unbox(item)
		}
		return out
	case map[string]any:
		var out = make(map[string]any, len(v))
		for k, item := range v {
			out[k] = unbox(item)
		}
		return out
	}
	return v
}
