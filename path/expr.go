package path

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// evalContext is the state a predicate is evaluated in.
type evalContext struct {
	node     *node
	position int
	size     int // 0 if unknown, as when testing a streamed element
	ns       map[string]string
	vars     func(string) any
}

// expr is a predicate expression.  Results are float64, string, bool or
// nodeSet.
type expr interface {
	eval(c *evalContext) any
}

// nodeSet holds the string values of the nodes selected inside a predicate.
type nodeSet []string

type (
	numberExpr   float64
	stringExpr   string
	variableExpr string
)

func (e numberExpr) eval(*evalContext) any { return float64(e) }
func (e stringExpr) eval(*evalContext) any { return string(e) }

func (e variableExpr) eval(c *evalContext) any {
	var value any
	if c.vars != nil {
		value = c.vars(string(e))
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string, bool, float64:
		return v
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return cast.ToFloat64(v)
	default:
		return cast.ToString(v)
	}
}

// attrExpr is @name or @*.
type attrExpr struct {
	any    bool
	prefix string
	local  string
}

func (e *attrExpr) eval(c *evalContext) any {
	if c.node == nil || c.node.kind != elementNode {
		return nodeSet(nil)
	}
	var test = nodeTest{kind: testName, prefix: e.prefix, local: e.local}
	if e.any {
		test = nodeTest{kind: testAny}
	}
	var result nodeSet
	for _, attr := range c.node.el.Attrs {
		if test.matches(&node{kind: attributeNode, attr: attr}, c.ns) {
			result = append(result, attr.Value)
		}
	}
	return result
}

// selfExpr is the context node.
type selfExpr struct{}

func (selfExpr) eval(c *evalContext) any {
	if c.node == nil {
		return nodeSet(nil)
	}
	return nodeSet{c.node.stringValue()}
}

// childExpr selects child elements by name, or all of them.
type childExpr struct {
	local string
}

func (e *childExpr) eval(c *evalContext) any {
	if c.node == nil {
		return nodeSet(nil)
	}
	var result nodeSet
	for _, child := range c.node.children {
		if child.kind == elementNode && (e.local == "" || child.el.Name.Local == e.local) {
			result = append(result, child.stringValue())
		}
	}
	return result
}

type logicalExpr struct {
	or          bool
	left, right expr
}

func (e *logicalExpr) eval(c *evalContext) any {
	var left = toBool(e.left.eval(c))
	if e.or == left {
		return left
	}
	return toBool(e.right.eval(c))
}

type compareExpr struct {
	op          string
	left, right expr
}

func (e *compareExpr) eval(c *evalContext) any {
	var left, right = e.left.eval(c), e.right.eval(c)
	if set, ok := left.(nodeSet); ok {
		for _, s := range set {
			if compare(e.op, s, right) {
				return true
			}
		}
		return false
	}
	if set, ok := right.(nodeSet); ok {
		for _, s := range set {
			if compare(e.op, left, s) {
				return true
			}
		}
		return false
	}
	return compare(e.op, left, right)
}

// compare compares two scalar values.  Equality compares booleans if either
// side is boolean, then numbers if either side is a number, else strings.
// Ordering always compares numbers.
func compare(op string, a, b any) bool {
	if op == "=" || op == "!=" {
		var eq bool
		switch {
		case isBool(a) || isBool(b):
			eq = toBool(a) == toBool(b)
		case isNumber(a) || isNumber(b):
			eq = toNumber(a) == toNumber(b)
		default:
			eq = toString(a) == toString(b)
		}
		return eq == (op == "=")
	}
	var x, y = toNumber(a), toNumber(b)
	switch op {
	case "<":
		return x < y
	case "<=":
		return x <= y
	case ">":
		return x > y
	}
	return x >= y
}

func isBool(v any) bool {
	var _, ok = v.(bool)
	return ok
}

func isNumber(v any) bool {
	var _, ok = v.(float64)
	return ok
}

func toBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case nodeSet:
		return len(v) > 0
	}
	return false
}

func toNumber(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	}
	var f, err = strconv.ParseFloat(strings.TrimSpace(toString(v)), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nodeSet:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// callExpr is a call of one of the supported functions.
type callExpr struct {
	name string
	fn   function
	args []expr
}

func (e *callExpr) eval(c *evalContext) any {
	var args = make([]any, len(e.args))
	for i, arg := range e.args {
		args[i] = arg.eval(c)
	}
	return e.fn.call(c, args)
}

type function struct {
	minArgs, maxArgs int
	call             func(c *evalContext, args []any) any
}

var functions = map[string]function{
	"name":          {0, 0, func(c *evalContext, _ []any) any { return qualifiedName(c) }},
	"local-name":    {0, 0, func(c *evalContext, _ []any) any { return c.node.name().Local }},
	"namespace-uri": {0, 0, func(c *evalContext, _ []any) any { return c.node.name().Space }},
	"position":      {0, 0, func(c *evalContext, _ []any) any { return float64(c.position) }},
	"last":          {0, 0, func(c *evalContext, _ []any) any { return float64(c.size) }},
	"true":          {0, 0, func(*evalContext, []any) any { return true }},
	"false":         {0, 0, func(*evalContext, []any) any { return false }},
	"not":           {1, 1, func(_ *evalContext, args []any) any { return !toBool(args[0]) }},
	"string":        {1, 1, func(_ *evalContext, args []any) any { return toString(args[0]) }},
	"number":        {1, 1, func(_ *evalContext, args []any) any { return toNumber(args[0]) }},
	"contains": {2, 2, func(_ *evalContext, args []any) any {
		return strings.Contains(toString(args[0]), toString(args[1]))
	}},
	"starts-with": {2, 2, func(_ *evalContext, args []any) any {
		return strings.HasPrefix(toString(args[0]), toString(args[1]))
	}},
	"concat": {2, math.MaxInt, func(_ *evalContext, args []any) any {
		var sb strings.Builder
		for _, arg := range args {
			sb.WriteString(toString(arg))
		}
		return sb.String()
	}},
}

// qualifiedName returns the name of the context node using the prefix the
// path's namespace map binds to its namespace.
func qualifiedName(c *evalContext) string {
	var name = c.node.name()
	if name.Space == "" {
		return name.Local
	}
	for prefix, uri := range c.ns {
		if uri == name.Space && prefix != "" {
			return prefix + ":" + name.Local
		}
	}
	return name.Local
}
