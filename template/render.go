package template

import (
	"fmt"
	"iter"
	"maps"
	"reflect"
	"runtime"
	"strings"

	"github.com/davidfraser/genshi/data"
	"github.com/davidfraser/genshi/eval"
	"github.com/davidfraser/genshi/markup"
	"github.com/davidfraser/genshi/path"
)

// render is the state of one render of a template.  It's not part of the
// template so that multiple renders of the same template can run in
// parallel.
type render struct {
	tmpl       *Template
	ctxt       *Context
	globals    map[string]interface{}
	numberConv data.NumberConv
	paths      map[string]*path.Path // select() queries, parsed once per render
	marks      []int                 // match sequence number at each open element
}

// part is a piece of an interpolated attribute value: literal text or an
// expression.
type part struct {
	text string
	expr eval.Expr
}

// dynamicAttrs is the payload of a prepared start tag whose attribute values
// contain expressions.
type dynamicAttrs map[markup.QName][]part

// errRecover is the handler that turns panics into returns from the top
// level of a render.
func errRecover(errp *error) {
	var e = recover()
	if e != nil {
		switch err := e.(type) {
		case runtime.Error:
			panic(e)
		case error:
			*errp = err
		default:
			panic(e)
		}
	}
}

// env builds the environment expressions are evaluated in: the extra vars,
// over the context, over the globals, over the builtins.
func (r *render) env(vars map[string]interface{}) map[string]interface{} {
	var env = r.ctxt.Vars()
	for name, value := range r.globals {
		if _, ok := env[name]; !ok {
			env[name] = value
		}
	}
	maps.Copy(env, vars)
	for name, fn := range r.builtins() {
		if _, ok := env[name]; !ok {
			env[name] = fn
		}
	}
	return eval.WithBuiltins(env)
}

// builtins are the functions that need access to the render.
func (r *render) builtins() map[string]eval.Func {
	return map[string]eval.Func{
		"defined": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, errArgs("defined", 1, len(args))
			}
			return r.ctxt.Has(data.String(args[0])), nil
		},
		"value_of": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 && len(args) != 2 {
				return nil, errArgs("value_of", 2, len(args))
			}
			var def interface{}
			if len(args) == 2 {
				def = args[1]
			}
			return r.ctxt.Get(data.String(args[0]), def), nil
		},
	}
}

func errArgs(name string, n, got int) error {
	return fmt.Errorf("%s() takes %d argument(s), %d given", name, n, got)
}

// lookup resolves a variable referenced by a path expression.
func (r *render) lookup(name string) interface{} {
	if v, ok := r.ctxt.Lookup(name); ok {
		return v
	}
	return r.globals[name]
}

// eval evaluates an expression.  Evaluation errors abort the render
// unmodified.
func (r *render) eval(expr eval.Expr, vars map[string]interface{}) interface{} {
	var value, err = expr.Eval(r.env(vars))
	if err != nil {
		panic(err)
	}
	return value
}

// apply runs the directives over body.  With no directives left the body is
// returned as it is.  A directive that produces nothing yields an empty
// sequence.
func (r *render) apply(body []markup.Event, directives []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	if len(directives) == 0 {
		return markup.Stream(body)
	}
	if seq := directives[0].apply(r, body, directives[1:], vars); seq != nil {
		return seq
	}
	return func(func(markup.Event) bool) {}
}

// scoped pushes frame, passes the events of the sequence returned by seq to
// yield and pops the frame, also when yield stops the iteration.  seq is
// called after the push, so directives it applies see the frame.  It returns
// false if yield did.
func (r *render) scoped(frame map[string]interface{}, seq func() iter.Seq[markup.Event], yield func(markup.Event) bool) bool {
	r.ctxt.Push(frame)
	defer r.ctxt.Pop()
	for ev := range seq() {
		if !yield(ev) {
			return false
		}
	}
	return true
}

// flatten evaluates the expressions and directives of a prepared stream.
func (r *render) flatten(stream iter.Seq[markup.Event], vars map[string]interface{}) iter.Seq[markup.Event] {
	return func(yield func(markup.Event) bool) {
		for ev := range stream {
			switch ev.Kind {
			case markup.Start:
				if dynamic, ok := ev.Data.(dynamicAttrs); ok {
					ev = r.evalAttrs(ev, dynamic, vars)
				}
				r.marks = append(r.marks, r.ctxt.seq)
				if !yield(ev) {
					return
				}

			case markup.End:
				if !yield(ev) {
					return
				}
				r.closeElement()

			case markup.Expr:
				var value = r.eval(ev.Data.(eval.Expr), vars)
				for out := range r.events(value, ev.Pos) {
					if !yield(out) {
						return
					}
				}

			case markup.Sub:
				var s = ev.Data.(*sub)
				var substream = s.directives[0].apply(r, s.body, s.directives[1:], vars)
				if substream == nil {
					continue
				}
				for out := range r.flatten(substream, vars) {
					if !yield(out) {
						return
					}
				}

			default:
				if !yield(ev) {
					return
				}
			}
		}
	}
}

// closeElement expires the match rules registered inside the element that
// just ended.
func (r *render) closeElement() {
	if len(r.marks) == 0 {
		return
	}
	var mark = r.marks[len(r.marks)-1]
	r.marks = r.marks[:len(r.marks)-1]
	if n := r.ctxt.expireMatches(mark); n > 0 {
		r.logf("%d match rule(s) expired", n)
	}
}

// evalAttrs computes the attribute values of a start tag.  An attribute whose
// expressions all produce nothing is dropped.
func (r *render) evalAttrs(ev markup.Event, dynamic dynamicAttrs, vars map[string]interface{}) markup.Event {
	var attrs = make(markup.Attrs, 0, len(ev.Attrs))
	for _, attr := range ev.Attrs {
		var parts, ok = dynamic[attr.Name]
		if !ok {
			attrs = append(attrs, attr)
			continue
		}
		var sb strings.Builder
		var produced = false
		for _, p := range parts {
			if p.expr == nil {
				sb.WriteString(p.text)
				produced = true
				continue
			}
			for out := range r.events(r.eval(p.expr, vars), ev.Pos) {
				if out.Kind == markup.Text {
					sb.WriteString(out.Text)
					produced = true
				}
			}
		}
		if produced {
			attrs = append(attrs, markup.Attribute{Name: attr.Name, Value: sb.String()})
		}
	}
	ev.Attrs = attrs
	ev.Data = nil
	return ev
}

// events converts the value of an expression to output events.  Strings and
// other scalars become text, event streams are passed through, and lists are
// converted item by item.  Nil produces nothing.
func (r *render) events(value interface{}, pos markup.Pos) iter.Seq[markup.Event] {
	return func(yield func(markup.Event) bool) {
		r.emit(value, pos, yield)
	}
}

func (r *render) emit(value interface{}, pos markup.Pos, yield func(markup.Event) bool) bool {
	switch value := value.(type) {
	case nil:
		return true
	case string:
		return yield(markup.TextEvent(value, pos))
	case markup.Event:
		return yield(textual(value))
	case markup.Fragment:
		return emitEvents(markup.Stream(value), yield)
	case []markup.Event:
		return emitEvents(markup.Stream(value), yield)
	case iter.Seq[markup.Event]:
		return emitEvents(value, yield)
	case func(func(markup.Event) bool):
		return emitEvents(value, yield)
	case []interface{}:
		for _, item := range value {
			if !r.emit(item, pos, yield) {
				return false
			}
		}
		return true
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if !r.emit(rv.Index(i).Interface(), pos, yield) {
				return false
			}
		}
		return true
	}
	return yield(markup.TextEvent(data.Format(value, r.numberConv), pos))
}

func emitEvents(seq iter.Seq[markup.Event], yield func(markup.Event) bool) bool {
	for ev := range seq {
		if !yield(textual(ev)) {
			return false
		}
	}
	return true
}

// textual turns an attribute selected from matched content into its text.
func textual(ev markup.Event) markup.Event {
	if ev.Kind == markup.Attr {
		return markup.TextEvent(ev.Text, ev.Pos)
	}
	return ev
}

func (r *render) addMatch(rule *matchRule) {
	r.ctxt.addMatch(rule)
	r.logf("match rule %d registered for %q at %v", rule.seq, rule.path, rule.pos)
}

func (r *render) logf(format string, args ...interface{}) {
	if r.tmpl.opts.Logger != nil {
		r.tmpl.opts.Logger.Printf(format, args...)
	}
}
