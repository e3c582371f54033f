package template

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/davidfraser/genshi/data"
	"github.com/davidfraser/genshi/errortypes"
	"github.com/davidfraser/genshi/eval"
	"github.com/davidfraser/genshi/markup"
	"github.com/davidfraser/genshi/path"
)

// Kind identifies a directive.  Directives on the same node are applied in
// Kind order, the first one outermost.
type Kind int

const (
	Def Kind = iota
	Match
	When
	Otherwise
	For
	If
	Choose
	With
	Replace
	Content
	Attrs
	Strip
)

var kindNames = []string{
	"def", "match", "when", "otherwise", "for", "if",
	"choose", "with", "replace", "content", "attrs", "strip",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// lookupKind returns the Kind with the given directive name.
func lookupKind(name string) (Kind, bool) {
	var i = slices.Index(kindNames, name)
	return Kind(i), i >= 0
}

// Directive is one directive occurrence in a prepared template.  Directives
// are immutable once prepared; the state of a render lives in its Context.
type Directive interface {
	Kind() Kind

	// apply renders body under this directive.  rest are the directives of
	// the same node that follow this one; the directive applies them to
	// whatever it produces.  A nil result suppresses the node.
	apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event]
}

// sub is the payload of a Sub event: a node's directives in application
// order and the events they apply to.
type sub struct {
	directives []Directive
	body       []markup.Event
}

func (s *sub) String() string {
	var names = make([]string, len(s.directives))
	for i, d := range s.directives {
		names[i] = d.Kind().String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

type directive struct {
	kind Kind
	expr eval.Expr // nil if the directive has no value
	pos  markup.Pos
}

func (d *directive) Kind() Kind {
	return d.kind
}

func (d *directive) eval(r *render, vars map[string]interface{}) interface{} {
	return r.eval(d.expr, vars)
}

func (d *directive) errorf(format string, args ...interface{}) {
	panic(errortypes.NewRuntimeError(d.pos.Filename, d.pos.Line, format, args...))
}

// isElement reports whether body is a whole element: a start tag, its
// content and the matching end tag.
func isElement(body []markup.Event) bool {
	return len(body) >= 2 && body[0].Kind == markup.Start && body[len(body)-1].Kind == markup.End
}

// defDirective defines a template function.
type defDirective struct {
	directive
	sig      *eval.Signature
	defaults map[string]eval.Expr
}

func (d *defDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	r.ctxt.Define(d.sig.Name, d.function(r, body, rest, vars))
	return nil
}

// function returns the callable stored for the definition.  Its result is the
// lazily rendered body; the parameter frame is pushed when the result is
// consumed.
func (d *defDirective) function(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) eval.Func {
	return func(args ...interface{}) (interface{}, error) {
		var positional, kwargs = eval.SplitKwargs(args)
		kwargs = maps.Clone(kwargs)
		var scope = make(map[string]interface{})
		for i, param := range d.sig.Params {
			if i < len(positional) {
				scope[param.Name] = positional[i]
				continue
			}
			if v, ok := kwargs[param.Name]; ok {
				scope[param.Name] = v
				delete(kwargs, param.Name)
				continue
			}
			var def, ok = d.defaults[param.Name]
			if !ok {
				return nil, fmt.Errorf("%s() missing required argument %q", d.sig.Name, param.Name)
			}
			var value, err = def.Eval(r.env(vars))
			if err != nil {
				return nil, err
			}
			scope[param.Name] = value
		}
		if d.sig.Varargs != "" {
			var extra = data.List{}
			if len(positional) > len(d.sig.Params) {
				extra = append(extra, positional[len(d.sig.Params):]...)
			}
			scope[d.sig.Varargs] = extra
		}
		if d.sig.Varkw != "" {
			var extra = make(map[string]interface{}, len(kwargs))
			maps.Copy(extra, kwargs)
			scope[d.sig.Varkw] = extra
		}

		var content = func(yield func(markup.Event) bool) {
			r.ctxt.Push(scope)
			defer r.ctxt.Pop()
			for ev := range r.apply(body, rest, vars) {
				if !yield(ev) {
					return
				}
			}
		}
		return r.flatten(content, vars), nil
	}
}

// matchDirective registers a match rule.
type matchDirective struct {
	directive
	path  *path.Path
	hints hints
	ns    map[string]string
}

// hints modify how a match rule is applied.
type hints struct {
	notBuffered  bool
	once         bool
	notRecursive bool
}

func (h hints) String() string {
	var names []string
	if h.notBuffered {
		names = append(names, "not_buffered")
	}
	if h.once {
		names = append(names, "match_once")
	}
	if h.notRecursive {
		names = append(names, "not_recursive")
	}
	return strings.Join(names, ",")
}

func (d *matchDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	r.addMatch(&matchRule{
		path:  d.path,
		body:  body,
		rest:  rest,
		hints: d.hints,
		ns:    d.ns,
		pos:   d.pos,
	})
	return nil
}

// whenDirective renders its body if it is the first matching branch of the
// enclosing choose.
type whenDirective struct {
	directive
}

func (d *whenDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	var ch = r.ctxt.currentChoice()
	if ch == nil {
		d.errorf(`"when" directives can only be used inside a "choose" directive`)
	}
	if ch.matched {
		return nil
	}
	if d.expr == nil && !ch.hasTest {
		d.errorf(`either "choose" or "when" directive must have a test expression`)
	}

	var matched bool
	switch {
	case ch.hasTest && d.expr != nil:
		matched = data.Equal(ch.value, d.eval(r, vars))
	case ch.hasTest:
		matched = data.Truthy(ch.value)
	default:
		matched = data.Truthy(d.eval(r, vars))
	}
	ch.matched = matched
	if !matched {
		return nil
	}
	return r.apply(body, rest, vars)
}

// otherwiseDirective renders its body if no branch of the enclosing choose
// matched.
type otherwiseDirective struct {
	directive
}

func (d *otherwiseDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	var ch = r.ctxt.currentChoice()
	if ch == nil {
		d.errorf(`an "otherwise" directive can only be used inside a "choose" directive`)
	}
	if ch.matched {
		return nil
	}
	ch.matched = true
	return r.apply(body, rest, vars)
}

// forDirective repeats its body for every item of a sequence.
type forDirective struct {
	directive
	target *eval.Target
}

func (d *forDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	var value = d.eval(r, vars)
	var items, err = data.Iterate(value)
	if err != nil {
		panic(errortypes.WrapRuntimeError(err, d.pos.Filename, d.pos.Line,
			"cannot loop over %q", d.expr.Source()))
	}
	return func(yield func(markup.Event) bool) {
		for item := range items {
			var scope = make(map[string]interface{})
			if err := d.target.Assign(scope, item); err != nil {
				panic(errortypes.WrapRuntimeError(err, d.pos.Filename, d.pos.Line,
					"cannot assign to %s", d.target))
			}
			var next = func() iter.Seq[markup.Event] { return r.apply(body, rest, vars) }
			if !r.scoped(scope, next, yield) {
				return
			}
		}
	}
}

// ifDirective renders its body if its test is true.
type ifDirective struct {
	directive
}

func (d *ifDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	if !data.Truthy(d.eval(r, vars)) {
		return nil
	}
	return r.apply(body, rest, vars)
}

// chooseDirective opens a block of when/otherwise branches.
type chooseDirective struct {
	directive
}

func (d *chooseDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	return func(yield func(markup.Event) bool) {
		var ch = &choice{hasTest: d.expr != nil}
		if ch.hasTest {
			ch.value = d.eval(r, vars)
		}
		r.ctxt.pushChoice(ch)
		defer r.ctxt.popChoice()
		for ev := range r.apply(body, rest, vars) {
			if !yield(ev) {
				return
			}
		}
	}
}

// withDirective binds variables for its body.
type withDirective struct {
	directive
	stmts []withStatement
}

type withStatement struct {
	targets []*eval.Target
	expr    eval.Expr
}

func (d *withDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	return func(yield func(markup.Event) bool) {
		var frame = make(map[string]interface{})
		r.ctxt.Push(frame)
		defer r.ctxt.Pop()
		for _, stmt := range d.stmts {
			var value = r.eval(stmt.expr, vars)
			for _, target := range stmt.targets {
				if err := target.Assign(frame, value); err != nil {
					panic(errortypes.WrapRuntimeError(err, d.pos.Filename, d.pos.Line,
						"cannot assign to %s", target))
				}
			}
		}
		for ev := range r.apply(body, rest, vars) {
			if !yield(ev) {
				return
			}
		}
	}
}

// replaceDirective replaces the node with the value of its expression.
type replaceDirective struct {
	directive
}

func (d *replaceDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	return r.apply([]markup.Event{{Kind: markup.Expr, Data: d.expr, Pos: d.pos}}, rest, vars)
}

// contentDirective replaces the content of the element with the value of its
// expression.
type contentDirective struct {
	directive
}

func (d *contentDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	var value = markup.Event{Kind: markup.Expr, Data: d.expr, Pos: d.pos}
	if !isElement(body) {
		return r.apply([]markup.Event{value}, rest, vars)
	}
	return r.apply([]markup.Event{body[0], value, body[len(body)-1]}, rest, vars)
}

// attrsDirective adds, replaces or removes attributes of the element.
type attrsDirective struct {
	directive
}

func (d *attrsDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	var value = d.eval(r, vars)
	if !isElement(body) || !data.Truthy(value) {
		return r.apply(body, rest, vars)
	}

	var start = body[0]
	var dynamic, _ = start.Data.(dynamicAttrs)
	for _, pair := range d.pairs(value) {
		if pair.value == nil {
			start.Attrs = start.Attrs.Remove(pair.name)
			continue
		}
		start.Attrs = start.Attrs.Set(pair.name, strings.TrimSpace(data.Format(pair.value, r.numberConv)))
		if _, ok := dynamic[pair.name]; ok {
			dynamic = maps.Clone(dynamic)
			delete(dynamic, pair.name)
		}
	}
	start.Data = nil
	if len(dynamic) > 0 {
		start.Data = dynamic
	}

	var result = slices.Clone(body)
	result[0] = start
	return r.apply(result, rest, vars)
}

type attrPair struct {
	name  markup.QName
	value interface{}
}

// pairs interprets the value of the directive: attributes selected from
// matched content, a mapping, or a sequence of (name, value) pairs.
func (d *attrsDirective) pairs(value interface{}) []attrPair {
	var result []attrPair
	switch value := value.(type) {
	case markup.Fragment:
		for _, attr := range value.Attrs() {
			result = append(result, attrPair{attr.Name, attr.Value})
		}
		return result
	case markup.Attrs:
		for _, attr := range value {
			result = append(result, attrPair{attr.Name, attr.Value})
		}
		return result
	}

	if items, err := data.Items(value); err == nil {
		value = items
	}
	var seq, err = data.Iterate(value)
	if err != nil {
		panic(errortypes.WrapRuntimeError(err, d.pos.Filename, d.pos.Line,
			"attrs value must be a mapping or a sequence of pairs"))
	}
	for item := range seq {
		var pair, ok = item.([]interface{})
		if !ok || len(pair) != 2 {
			d.errorf("attrs value must be a mapping or a sequence of pairs, got item %s", data.Repr(item))
		}
		result = append(result, attrPair{attrName(pair[0]), pair[1]})
	}
	return result
}

func attrName(v interface{}) markup.QName {
	if name, ok := v.(markup.QName); ok {
		return name
	}
	return markup.Name(data.String(v))
}

// stripDirective removes the element's tags when its test is true.
type stripDirective struct {
	directive
}

func (d *stripDirective) apply(r *render, body []markup.Event, rest []Directive, vars map[string]interface{}) iter.Seq[markup.Event] {
	if isElement(body) && (d.expr == nil || data.Truthy(d.eval(r, vars))) {
		body = body[1 : len(body)-1]
	}
	return r.apply(body, rest, vars)
}
