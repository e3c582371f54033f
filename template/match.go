package template

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"

	"github.com/davidfraser/genshi/eval"
	"github.com/davidfraser/genshi/markup"
	"github.com/davidfraser/genshi/path"
)

// matchRule is a match template registered during a render.
type matchRule struct {
	seq   int // registration order
	path  *path.Path
	body  []markup.Event
	rest  []Directive
	hints hints
	ns    map[string]string
	pos   markup.Pos
}

// scope tracks an open element while matching, and numbers its children for
// positional predicates.
type scope struct {
	el     path.Element
	counts map[markup.QName]int
	index  int
}

// child numbers the next child element of s.
func (s *scope) child(ev markup.Event) path.Element {
	if s.counts == nil {
		s.counts = make(map[markup.QName]int)
	}
	s.index++
	s.counts[ev.Name]++
	return path.Element{Name: ev.Name, Attrs: ev.Attrs, Position: s.counts[ev.Name], Index: s.index}
}

func (s *scope) clone() *scope {
	return &scope{el: s.el, counts: maps.Clone(s.counts), index: s.index}
}

func ancestors(stack []*scope) []path.Element {
	var els = make([]path.Element, len(stack)-1)
	for i, s := range stack[1:] {
		els[i] = s.el
	}
	return els
}

// match applies the match rules with sequence numbers in [lo, hi) to the
// stream.  stack holds the elements enclosing the stream; its first entry
// stands for the document.
//
// An element matched by a rule is replaced by the rule's template.  The
// element's content is matched before the template sees it, by the rules
// before the matching one and, unless the rule is not recursive, by the
// matching rule itself.  The template output is matched only by the rules
// registered after the matching one, so a rule never applies to its own
// output.
func (r *render) match(stream iter.Seq[markup.Event], lo, hi int, stack []*scope) iter.Seq[markup.Event] {
	return func(yield func(markup.Event) bool) {
		var next, stop = iter.Pull(stream)
		defer stop()
		stack = slices.Clone(stack)

		for {
			var ev, ok = next()
			if !ok {
				return
			}

			switch ev.Kind {
			case markup.Start:
				var parent = stack[len(stack)-1]
				var before = parent.clone()
				var el = parent.child(ev)
				var rule = r.findRule(lo, hi, stack, el)
				if rule == nil {
					stack = append(stack, &scope{el: el})
					break
				}

				if rule.hints.once {
					r.ctxt.removeMatch(rule)
				}
				var content = r.matchedContent(ev, next, rule, lo, append(slices.Clone(stack), &scope{el: el}))
				var outer = append(slices.Clone(stack[:len(stack)-1]), before)
				for out := range r.expand(rule, content, outer) {
					if !yield(out) {
						return
					}
				}
				continue

			case markup.End:
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
			}

			if !yield(ev) {
				return
			}
		}
	}
}

// findRule returns the first active rule in [lo, hi) that matches el.
func (r *render) findRule(lo, hi int, stack []*scope, el path.Element) *matchRule {
	var chain []path.Element
	for _, rule := range r.ctxt.matches {
		if rule.seq < lo || rule.seq >= hi {
			continue
		}
		if chain == nil {
			chain = ancestors(stack)
		}
		if rule.path.Test(chain, el, rule.ns, r.lookup) {
			return rule
		}
	}
	return nil
}

// matchedContent consumes the rest of the element started by start and
// returns the whole element, its content already matched.
func (r *render) matchedContent(start markup.Event, next func() (markup.Event, bool), rule *matchRule, lo int, stack []*scope) []markup.Event {
	var end *markup.Event
	var inner iter.Seq[markup.Event] = func(yield func(markup.Event) bool) {
		var depth = 1
		for {
			var ev, ok = next()
			if !ok {
				return
			}
			switch ev.Kind {
			case markup.Start:
				depth++
			case markup.End:
				depth--
			}
			if depth == 0 {
				end = &ev
				return
			}
			if !yield(ev) {
				return
			}
		}
	}

	var hi = rule.seq + 1
	if rule.hints.notRecursive {
		hi = rule.seq
	}
	if hi > lo {
		inner = r.match(inner, lo, hi, stack)
	}

	var content = []markup.Event{start}
	content = append(content, slices.Collect(inner)...)
	if end != nil {
		content = append(content, *end)
	}
	return content
}

// expand renders the template of rule for the matched content.  select() in
// the template queries the content.
func (r *render) expand(rule *matchRule, content []markup.Event, stack []*scope) iter.Seq[markup.Event] {
	var vars = map[string]interface{}{
		"select": eval.Func(func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, errArgs("select", 1, len(args))
			}
			var query, ok = args[0].(string)
			if !ok {
				return nil, fmt.Errorf("select() expects a path string, got %T", args[0])
			}
			var p, err = r.parsePath(query)
			if err != nil {
				return nil, err
			}
			return p.Select(content, rule.ns, r.lookup), nil
		}),
	}
	var output = r.flatten(r.apply(rule.body, rule.rest, vars), vars)
	return r.match(output, rule.seq+1, math.MaxInt, stack)
}

func (r *render) parsePath(query string) (*path.Path, error) {
	if p, ok := r.paths[query]; ok {
		return p, nil
	}
	var p, err = path.Parse(query)
	if err != nil {
		return nil, err
	}
	if r.paths == nil {
		r.paths = make(map[string]*path.Path)
	}
	r.paths[query] = p
	return p, nil
}
