package path

import (
	"slices"
	"strings"

	"github.com/davidfraser/genshi/markup"
)

type nodeKind int

const (
	documentNode nodeKind = iota
	elementNode
	attributeNode
	textNode
	commentNode
)

// node is a node of a subtree captured for Select.
type node struct {
	kind     nodeKind
	el       Element
	attr     markup.Attribute
	events   []markup.Event // the element's full span, or the single event
	children []*node
	attrs    []*node
	order    int // document order
}

func (n *node) name() markup.QName {
	if n == nil {
		return markup.QName{}
	}
	switch n.kind {
	case elementNode:
		return n.el.Name
	case attributeNode:
		return n.attr.Name
	}
	return markup.QName{}
}

// stringValue returns the concatenated text of the node.
func (n *node) stringValue() string {
	switch n.kind {
	case attributeNode:
		return n.attr.Value
	case textNode, commentNode:
		return n.events[0].Text
	}
	var sb strings.Builder
	for _, ev := range n.events {
		if ev.Kind == markup.Text {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

// buildTree arranges the events into nodes.  The returned context node is
// the single element spanning all of content if there is one, else the
// document node.
func buildTree(content []markup.Event) (root, ctx *node) {
	root = &node{kind: documentNode, events: content}
	var (
		stack  = []*node{root}
		starts []int
		order  = 1
	)
	for i, ev := range content {
		var parent = stack[len(stack)-1]
		switch ev.Kind {
		case markup.Start:
			var n = &node{kind: elementNode, el: Element{Name: ev.Name, Attrs: ev.Attrs}, order: order}
			order++
			for _, attr := range ev.Attrs {
				n.attrs = append(n.attrs, &node{kind: attributeNode, attr: attr, order: order})
				order++
			}
			parent.children = append(parent.children, n)
			stack = append(stack, n)
			starts = append(starts, i)
		case markup.End:
			if len(stack) == 1 {
				continue
			}
			var n = stack[len(stack)-1]
			n.events = content[starts[len(starts)-1] : i+1]
			stack, starts = stack[:len(stack)-1], starts[:len(starts)-1]
		case markup.Text:
			parent.children = append(parent.children, &node{kind: textNode, events: content[i : i+1], order: order})
			order++
		case markup.Comment:
			parent.children = append(parent.children, &node{kind: commentNode, events: content[i : i+1], order: order})
			order++
		}
	}
	// unclosed elements extend to the end
	for len(starts) > 0 {
		var n = stack[len(stack)-1]
		n.events = content[starts[len(starts)-1]:]
		stack, starts = stack[:len(stack)-1], starts[:len(starts)-1]
	}
	numberSiblings(root)

	ctx = root
	if len(root.children) == 1 && root.children[0].kind == elementNode &&
		len(root.children[0].events) == len(content) {
		ctx = root.children[0]
	}
	return root, ctx
}

// numberSiblings fills in the sibling positions of every element.
func numberSiblings(n *node) {
	var index int
	var positions = map[markup.QName]int{}
	for _, child := range n.children {
		if child.kind != elementNode {
			continue
		}
		index++
		positions[child.el.Name]++
		child.el.Index = index
		child.el.Position = positions[child.el.Name]
		numberSiblings(child)
	}
}

// Select returns the nodes of content that the path selects, in document
// order.  Relative paths are evaluated from the element enclosing content,
// or from the top level if content is not a single element.
func (p *Path) Select(content []markup.Event, ns map[string]string, vars func(string) any) markup.Fragment {
	var root, ctx = buildTree(content)
	var c = &evalContext{ns: ns, vars: vars}
	var selected []*node
	for _, lp := range p.paths {
		selected = append(selected, lp.selectFrom(root, ctx, c)...)
	}
	selected = sortUnique(selected)

	var result markup.Fragment
	for _, n := range selected {
		switch n.kind {
		case attributeNode:
			result = append(result, markup.Event{Kind: markup.Attr, Name: n.attr.Name, Text: n.attr.Value})
		case documentNode:
			result = append(result, content...)
		default:
			result = append(result, n.events...)
		}
	}
	return result
}

func (lp *locationPath) selectFrom(root, ctx *node, c *evalContext) []*node {
	var set = []*node{ctx}
	if lp.absolute {
		set = []*node{root}
	}
	for _, st := range lp.steps {
		var next []*node
		for _, n := range set {
			next = append(next, st.selectFrom(n, c)...)
		}
		set = sortUnique(next)
	}
	return set
}

// selectFrom returns the nodes reached from n by the step.
func (st *step) selectFrom(n *node, c *evalContext) []*node {
	var candidates []*node
	var add = func(m *node) {
		if st.test.matches(m, c.ns) {
			candidates = append(candidates, m)
		}
	}
	switch st.axis {
	case axisSelf:
		add(n)
	case axisChild:
		for _, child := range n.children {
			add(child)
		}
	case axisDescendant:
		var walk func(*node)
		walk = func(m *node) {
			for _, child := range m.children {
				add(child)
				walk(child)
			}
		}
		walk(n)
	case axisAttribute:
		for _, attr := range n.attrs {
			add(attr)
		}
	}

	for _, pred := range st.predicates {
		var kept []*node
		for i, m := range candidates {
			var pc = &evalContext{node: m, position: i + 1, size: len(candidates), ns: c.ns, vars: c.vars}
			if predicateTrue(pred.eval(pc), i+1) {
				kept = append(kept, m)
			}
		}
		candidates = kept
	}
	return candidates
}

func sortUnique(nodes []*node) []*node {
	slices.SortStableFunc(nodes, func(a, b *node) int { return a.order - b.order })
	return slices.CompactFunc(nodes, func(a, b *node) bool { return a == b })
}
