// Package path implements the subset of XPath used to match and select
// markup: location paths made of child, descendant, self and attribute
// steps, name and node-type tests, unions and predicates.
//
// A Path is used in two ways.  Test decides whether an element that is about
// to be rendered matches, given only its ancestors; nothing after the start
// tag is known at that point.  Select evaluates the path against a captured
// subtree and returns the matching nodes as a markup.Fragment.
package path

import (
	"github.com/davidfraser/genshi/markup"
)

// Path is a compiled path expression.  It is immutable and safe for
// concurrent use.
type Path struct {
	source string
	paths  []*locationPath // alternatives of a union
}

func (p *Path) String() string {
	return p.source
}

// Element describes an element as seen by Test.
type Element struct {
	Name  markup.QName
	Attrs markup.Attrs

	// Position is the 1-based index of the element among its siblings of
	// the same name; Index counts all element siblings.
	Position int
	Index    int
}

type axis int

const (
	axisChild axis = iota
	axisDescendant
	axisSelf
	axisAttribute
)

type testKind int

const (
	testName      testKind = iota // name or prefix:name
	testAny                       // *
	testPrefixAny                 // prefix:*
	testNode                      // node()
	testText                      // text()
	testComment                   // comment()
)

type nodeTest struct {
	kind   testKind
	prefix string
	local  string
}

type step struct {
	axis       axis
	test       nodeTest
	predicates []expr
}

type locationPath struct {
	absolute bool
	steps    []*step
}

// Test reports whether el, nested inside ancestors (outermost first), is
// matched by the path.  Prefixes in the path are resolved with ns; $name
// references are resolved with vars.
func (p *Path) Test(ancestors []Element, el Element, ns map[string]string, vars func(string) any) bool {
	var chain = make([]Element, 0, len(ancestors)+1)
	chain = append(append(chain, ancestors...), el)
	var c = &evalContext{ns: ns, vars: vars}
	for _, lp := range p.paths {
		var last = lp.steps[len(lp.steps)-1]
		if last.axis == axisAttribute || last.test.kind == testText || last.test.kind == testComment {
			continue
		}
		if lp.testFrom(len(lp.steps)-1, len(chain)-1, chain, c) {
			return true
		}
	}
	return false
}

// testFrom reports whether steps[:i+1] match with step i at chain[j].
func (lp *locationPath) testFrom(i, j int, chain []Element, c *evalContext) bool {
	var st = lp.steps[i]
	if !st.testElement(chain[j], c) {
		return false
	}
	if i == 0 {
		switch {
		case !lp.absolute:
			return true
		case st.axis == axisDescendant:
			return true
		case st.axis == axisSelf:
			return false
		}
		return j == 0
	}
	switch st.axis {
	case axisSelf:
		return lp.testFrom(i-1, j, chain, c)
	case axisChild:
		return j > 0 && lp.testFrom(i-1, j-1, chain, c)
	case axisDescendant:
		for k := j - 1; k >= 0; k-- {
			if lp.testFrom(i-1, k, chain, c) {
				return true
			}
		}
	}
	return false
}

// testElement applies the node test and predicates of a step to an element
// seen in streaming mode.
func (st *step) testElement(el Element, c *evalContext) bool {
	var n = &node{kind: elementNode, el: el}
	if st.axis == axisAttribute || !st.test.matches(n, c.ns) {
		return false
	}
	var position = el.Index
	if st.test.kind == testName {
		position = el.Position
	}
	for _, pred := range st.predicates {
		var pc = &evalContext{node: n, position: position, ns: c.ns, vars: c.vars}
		if !predicateTrue(pred.eval(pc), position) {
			return false
		}
	}
	return true
}

func (nt nodeTest) matches(n *node, ns map[string]string) bool {
	switch nt.kind {
	case testNode:
		return n.kind != documentNode
	case testText:
		return n.kind == textNode
	case testComment:
		return n.kind == commentNode
	}

	var name markup.QName
	switch n.kind {
	case elementNode:
		name = n.el.Name
	case attributeNode:
		name = n.attr.Name
	default:
		return false
	}
	switch nt.kind {
	case testAny:
		return true
	case testPrefixAny:
		var uri, ok = ns[nt.prefix]
		return ok && uri == name.Space
	}
	if name.Local != nt.local {
		return false
	}
	if nt.prefix == "" {
		return true
	}
	var uri, ok = ns[nt.prefix]
	return ok && uri == name.Space
}

// predicateTrue converts a predicate result to a boolean.  A number selects
// the node at that position.
func predicateTrue(v any, position int) bool {
	if f, ok := v.(float64); ok {
		return f == float64(position)
	}
	return toBool(v)
}
