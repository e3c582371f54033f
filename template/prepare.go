package template

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/davidfraser/genshi/errortypes"
	"github.com/davidfraser/genshi/eval"
	"github.com/davidfraser/genshi/markup"
	"github.com/davidfraser/genshi/path"
)

// Namespace is the namespace of template directives, conventionally bound to
// the "py" prefix.
const Namespace = "http://genshi.edgewall.org/"

// valueAttrs names the attribute that holds the value of a directive written
// as an element.
var valueAttrs = map[Kind]string{
	Def:     "function",
	Match:   "path",
	When:    "test",
	If:      "test",
	Choose:  "test",
	For:     "each",
	With:    "vars",
	Replace: "value",
}

// preparer compiles the directives and expressions of a parsed template.
type preparer struct {
	compiler eval.Compiler
}

// node is an element being prepared.
type node struct {
	start      markup.Event
	dynamic    dynamicAttrs
	directives []Directive
	element    bool // a directive written as an element; only its content is rendered
	strip      bool // stripped unconditionally
	events     []markup.Event
}

// prepare turns parsed markup into the prepared form rendered by flatten:
// text and attribute values are interpolated, and elements carrying
// directives are replaced by Sub events.
func (p *preparer) prepare(events []markup.Event) ([]markup.Event, error) {
	var root = &node{}
	var stack = []*node{root}
	var scopes = []map[string]string{{"xml": markup.XMLNamespace}}

	for _, ev := range events {
		var top = stack[len(stack)-1]
		switch ev.Kind {
		case markup.Start:
			var ns = scopes[len(scopes)-1]
			if len(ev.NS) > 0 {
				ns = maps.Clone(ns)
				for _, decl := range ev.NS {
					ns[decl.Prefix] = decl.URI
				}
			}
			scopes = append(scopes, ns)
			var n, err = p.start(ev, ns)
			if err != nil {
				return nil, err
			}
			stack = append(stack, n)

		case markup.End:
			if len(stack) == 1 {
				return nil, errortypes.NewSyntaxError(ev.Pos.Filename, ev.Pos.Line, ev.Pos.Col,
					"unexpected end tag %v", ev.Name)
			}
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
			var parent = stack[len(stack)-1]
			parent.events = append(parent.events, top.finish(ev)...)

		case markup.Text:
			var out, err = p.interpolateEvents(ev)
			if err != nil {
				return nil, err
			}
			top.events = append(top.events, out...)

		case markup.Comment:
			if strings.HasPrefix(strings.TrimLeft(ev.Text, " \t\r\n"), "!") {
				continue
			}
			top.events = append(top.events, ev)

		default:
			top.events = append(top.events, ev)
		}
	}
	if len(stack) > 1 {
		var open = stack[len(stack)-1].start
		return nil, errortypes.NewSyntaxError(open.Pos.Filename, open.Pos.Line, open.Pos.Col,
			"unclosed element %v", open.Name)
	}
	return root.events, nil
}

// start prepares a start tag: the directives it carries, as an element or as
// attributes, and its interpolated attribute values.
func (p *preparer) start(ev markup.Event, ns map[string]string) (*node, error) {
	var n = &node{}
	var pos = ev.Pos

	if ev.Name.Space == Namespace {
		var kind, ok = lookupKind(ev.Name.Local)
		if !ok {
			return nil, errortypes.NewBadDirectiveError(ev.Name.Local, pos.Filename, pos.Line, pos.Col)
		}
		if _, ok := valueAttrs[kind]; !ok && kind != Otherwise {
			return nil, errortypes.NewSyntaxError(pos.Filename, pos.Line, pos.Col,
				"the %q directive can not be used as an element", kind)
		}
		var value, _ = ev.Attrs.Get(markup.Name(valueAttrs[kind]))
		var d, err = p.directive(kind, value, pos, ns, elementHints(ev.Attrs))
		if err != nil {
			return nil, err
		}
		n.element = true
		n.directives = append(n.directives, d)
	}

	var attrs markup.Attrs
	for _, attr := range ev.Attrs {
		if attr.Name.Space == Namespace {
			var kind, ok = lookupKind(attr.Name.Local)
			if !ok {
				return nil, errortypes.NewBadDirectiveError(attr.Name.Local, pos.Filename, pos.Line, pos.Col)
			}
			if kind == Strip && strings.TrimSpace(attr.Value) == "" {
				n.strip = true
				continue
			}
			var d, err = p.directive(kind, attr.Value, pos, ns, hints{})
			if err != nil {
				return nil, err
			}
			n.directives = append(n.directives, d)
			continue
		}
		if n.element {
			continue
		}

		var parts, err = p.interpolate(attr.Value, pos)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
		if slices.ContainsFunc(parts, func(p part) bool { return p.expr != nil }) {
			if n.dynamic == nil {
				n.dynamic = make(dynamicAttrs)
			}
			n.dynamic[attr.Name] = parts
		}
	}
	slices.SortStableFunc(n.directives, func(a, b Directive) int {
		return int(a.Kind()) - int(b.Kind())
	})

	ev.Attrs = attrs
	ev.NS = slices.DeleteFunc(slices.Clone(ev.NS), func(decl markup.Namespace) bool {
		return decl.URI == Namespace
	})
	if n.dynamic != nil {
		ev.Data = n.dynamic
	}
	n.start = ev
	return n, nil
}

// elementHints reads the match options given as attributes of a match
// element.
func elementHints(attrs markup.Attrs) hints {
	var flag = func(name, value string) bool {
		var v, _ = attrs.Get(markup.Name(name))
		return strings.EqualFold(strings.TrimSpace(v), value)
	}
	return hints{
		notBuffered:  flag("buffer", "false"),
		once:         flag("once", "true"),
		notRecursive: flag("recursive", "false"),
	}
}

// finish closes the node and returns the events it contributes to its
// parent.
func (n *node) finish(end markup.Event) []markup.Event {
	var body = n.events
	if !n.element && !n.strip {
		body = append([]markup.Event{n.start}, n.events...)
		body = append(body, end)
	}
	if len(n.directives) == 0 {
		return body
	}
	return []markup.Event{{
		Kind: markup.Sub,
		Data: &sub{directives: n.directives, body: body},
		Pos:  n.start.Pos,
	}}
}

// directive compiles one directive occurrence.
func (p *preparer) directive(kind Kind, value string, pos markup.Pos, ns map[string]string, h hints) (Directive, error) {
	var base = directive{kind: kind, pos: pos}
	var trimmed = strings.TrimSpace(value)
	var required = func() error {
		if trimmed == "" {
			return errortypes.NewSyntaxError(pos.Filename, pos.Line, pos.Col,
				"the %q directive requires a value", kind)
		}
		var err error
		base.expr, err = p.compile(trimmed, pos, kind.String())
		return err
	}
	var optional = func() error {
		if trimmed == "" {
			return nil
		}
		var err error
		base.expr, err = p.compile(trimmed, pos, kind.String())
		return err
	}

	switch kind {
	case Def:
		var sig, err = eval.ParseSignature(value)
		if err != nil {
			return nil, p.syntaxError(err, pos, kind)
		}
		var d = &defDirective{directive: base, sig: sig, defaults: make(map[string]eval.Expr)}
		for _, param := range sig.Params {
			if param.Default == "" {
				continue
			}
			if d.defaults[param.Name], err = p.compile(param.Default, pos, kind.String()); err != nil {
				return nil, err
			}
		}
		return d, nil

	case Match:
		if trimmed == "" {
			return nil, errortypes.NewSyntaxError(pos.Filename, pos.Line, pos.Col,
				"the %q directive requires a path", kind)
		}
		var pth, err = path.Parse(trimmed)
		if err != nil {
			return nil, errortypes.NewSyntaxError(pos.Filename, pos.Line, pos.Col,
				"invalid path in %q directive: %v", kind, err)
		}
		return &matchDirective{directive: base, path: pth, hints: h, ns: ns}, nil

	case When:
		if err := optional(); err != nil {
			return nil, err
		}
		return &whenDirective{base}, nil

	case Otherwise:
		return &otherwiseDirective{base}, nil

	case For:
		if trimmed == "" {
			return nil, errortypes.NewSyntaxError(pos.Filename, pos.Line, pos.Col,
				"the %q directive requires a value", kind)
		}
		var target, src, err = eval.ParseFor(trimmed)
		if err != nil {
			return nil, p.syntaxError(err, pos, kind)
		}
		if base.expr, err = p.compile(src, pos, kind.String()); err != nil {
			return nil, err
		}
		return &forDirective{directive: base, target: target}, nil

	case If:
		if err := required(); err != nil {
			return nil, err
		}
		return &ifDirective{base}, nil

	case Choose:
		if err := optional(); err != nil {
			return nil, err
		}
		return &chooseDirective{base}, nil

	case With:
		var d = &withDirective{directive: base}
		if trimmed == "" {
			return d, nil
		}
		var stmts, err = eval.ParseStatements(trimmed)
		if err != nil {
			return nil, p.syntaxError(err, pos, kind)
		}
		for _, stmt := range stmts {
			var expr, err = p.compile(stmt.Expr, pos, kind.String())
			if err != nil {
				return nil, err
			}
			d.stmts = append(d.stmts, withStatement{targets: stmt.Targets, expr: expr})
		}
		return d, nil

	case Replace:
		if err := required(); err != nil {
			return nil, err
		}
		return &replaceDirective{base}, nil

	case Content:
		if err := required(); err != nil {
			return nil, err
		}
		return &contentDirective{base}, nil

	case Attrs:
		if err := required(); err != nil {
			return nil, err
		}
		return &attrsDirective{base}, nil

	case Strip:
		if err := optional(); err != nil {
			return nil, err
		}
		return &stripDirective{base}, nil
	}
	return nil, errortypes.NewBadDirectiveError(kind.String(), pos.Filename, pos.Line, pos.Col)
}

// compile compiles an expression, reporting malformed source as a template
// syntax error.  what names the directive the expression belongs to, if any.
func (p *preparer) compile(src string, pos markup.Pos, what string) (eval.Expr, error) {
	var expr, err = p.compiler.Compile(src, pos.Filename, pos.Line)
	if err == nil {
		return expr, nil
	}
	var msg = err.Error()
	var col = pos.Col
	var serr *eval.SyntaxError
	if errors.As(err, &serr) {
		msg = serr.Msg
		col += serr.Offset
	}
	if what != "" {
		return nil, errortypes.NewSyntaxError(pos.Filename, pos.Line, col,
			"invalid expression in %q directive %q: %s", what, src, msg)
	}
	return nil, errortypes.NewSyntaxError(pos.Filename, pos.Line, col,
		"invalid expression %q: %s", src, msg)
}

// syntaxError reports an error parsing the value of a directive.
func (p *preparer) syntaxError(err error, pos markup.Pos, kind Kind) error {
	var msg = err.Error()
	var col = pos.Col
	var serr *eval.SyntaxError
	if errors.As(err, &serr) {
		msg = serr.Msg
		col += serr.Offset
	}
	return errortypes.NewSyntaxError(pos.Filename, pos.Line, col,
		"invalid value for %q directive: %s", kind, msg)
}
