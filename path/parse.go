package path

import (
	"fmt"
	"runtime"
	"strconv"
)

// parser is a recursive descent parser over the items produced by the lexer.
type parser struct {
	text      string
	lex       *lexer
	token     [2]item // two-token lookahead
	peekCount int
}

// Parse compiles the given path expression.
func Parse(text string) (p *Path, err error) {
	var t = &parser{text: text, lex: lex(text)}
	defer t.recover(&err)
	var alternatives = []*locationPath{t.locationPath()}
	for t.peek().typ == itemPipe {
		t.next()
		alternatives = append(alternatives, t.locationPath())
	}
	t.expect(itemEOF, "path")
	return &Path{source: text, paths: alternatives}, nil
}

// MustParse is like Parse but panics if the expression is invalid.
func MustParse(text string) *Path {
	var p, err = Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// next returns the next token.
func (t *parser) next() item {
	if t.peekCount > 0 {
		t.peekCount--
	} else {
		t.token[0] = t.lex.nextItem()
	}
	return t.token[t.peekCount]
}

// backup backs the input stream up one token.
func (t *parser) backup() {
	t.peekCount++
}

// backup2 backs the input stream up two tokens after a next and a peek.
// The zeroth token is already there.
func (t *parser) backup2(t1 item) {
	t.token[1] = t1
	t.peekCount = 2
}

// peek returns but does not consume the next token.
func (t *parser) peek() item {
	if t.peekCount > 0 {
		return t.token[t.peekCount-1]
	}
	t.peekCount = 1
	t.token[0] = t.lex.nextItem()
	return t.token[0]
}

// errorf formats the error and terminates processing.
func (t *parser) errorf(format string, args ...interface{}) {
	panic(fmt.Errorf("path %q: "+format, append([]interface{}{t.text}, args...)...))
}

// expect consumes the next token and guarantees it has the required type.
func (t *parser) expect(expected itemType, context string) item {
	var token = t.next()
	if token.typ != expected {
		t.unexpected(token, context)
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (t *parser) unexpected(token item, context string) {
	if token.typ == itemError {
		t.errorf("%s", token.val)
	}
	t.errorf("unexpected %s in %s", token, context)
}

// recover is the handler that turns panics into returns from the top level of Parse.
func (t *parser) recover(errp *error) {
	if e := recover(); e != nil {
		if _, ok := e.(runtime.Error); ok {
			panic(e)
		}
		*errp = e.(error)
	}
}

// locationPath parses a sequence of steps separated by / or //.
func (t *parser) locationPath() *locationPath {
	var lp = &locationPath{}
	var ax = axisChild
	switch t.peek().typ {
	case itemSlash:
		t.next()
		lp.absolute = true
	case itemDoubleSlash:
		t.next()
		lp.absolute = true
		ax = axisDescendant
	}
	for {
		lp.steps = append(lp.steps, t.step(ax))
		switch t.peek().typ {
		case itemSlash:
			t.next()
			ax = axisChild
			continue
		case itemDoubleSlash:
			t.next()
			ax = axisDescendant
			continue
		}
		return lp
	}
}

var axisNames = map[string]axis{
	"attribute":  axisAttribute,
	"child":      axisChild,
	"descendant": axisDescendant,
	"self":       axisSelf,
}

// step parses one location step: an optional axis, a node test and any
// number of predicates.
func (t *parser) step(ax axis) *step {
	var st = &step{axis: ax}
	switch token := t.next(); token.typ {
	case itemDot:
		st.axis = axisSelf
		st.test = nodeTest{kind: testNode}
		return st
	case itemAt:
		st.axis = axisAttribute
	case itemName:
		if t.peek().typ == itemDoubleColon {
			var named, ok = axisNames[token.val]
			if !ok {
				t.errorf("unsupported axis %q", token.val)
			}
			t.next()
			st.axis = named
			if ax == axisDescendant && named == axisChild {
				st.axis = axisDescendant
			}
		} else {
			t.backup2(token)
		}
	default:
		t.backup()
	}
	st.test = t.nodeTest()
	if st.axis == axisAttribute && st.test.kind != testName && st.test.kind != testAny {
		t.errorf("invalid attribute test")
	}
	for t.peek().typ == itemLeftBracket {
		t.next()
		st.predicates = append(st.predicates, t.expr())
		t.expect(itemRightBracket, "predicate")
	}
	return st
}

var nodeTypes = map[string]testKind{
	"node":    testNode,
	"text":    testText,
	"comment": testComment,
}

// nodeTest parses *, prefix:*, name, prefix:name or a node type test.
func (t *parser) nodeTest() nodeTest {
	switch token := t.next(); token.typ {
	case itemStar:
		return nodeTest{kind: testAny}
	case itemName:
		switch t.peek().typ {
		case itemColon:
			t.next()
			switch local := t.next(); local.typ {
			case itemStar:
				return nodeTest{kind: testPrefixAny, prefix: token.val}
			case itemName:
				return nodeTest{kind: testName, prefix: token.val, local: local.val}
			default:
				t.unexpected(local, "qualified name")
			}
		case itemLeftParen:
			var kind, ok = nodeTypes[token.val]
			if !ok {
				t.errorf("unsupported node test %s()", token.val)
			}
			t.next()
			t.expect(itemRightParen, "node test")
			return nodeTest{kind: kind}
		}
		return nodeTest{kind: testName, local: token.val}
	default:
		t.unexpected(token, "location step")
	}
	panic("not reached")
}

// Predicate expressions, lowest precedence first:
//
//	expr    := and ('or' and)*
//	and     := compare ('and' compare)*
//	compare := primary (op primary)?
//	primary := number | string | $var | @name | @* | . | func(args) | (expr) | name
func (t *parser) expr() expr {
	var left = t.andExpr()
	for t.isKeyword("or") {
		t.next()
		left = &logicalExpr{or: true, left: left, right: t.andExpr()}
	}
	return left
}

func (t *parser) andExpr() expr {
	var left = t.compareExpr()
	for t.isKeyword("and") {
		t.next()
		left = &logicalExpr{left: left, right: t.compareExpr()}
	}
	return left
}

func (t *parser) isKeyword(word string) bool {
	var token = t.peek()
	return token.typ == itemName && token.val == word
}

var compareOps = map[itemType]string{
	itemEq:    "=",
	itemNotEq: "!=",
	itemLt:    "<",
	itemLte:   "<=",
	itemGt:    ">",
	itemGte:   ">=",
}

func (t *parser) compareExpr() expr {
	var left = t.primary()
	if op, ok := compareOps[t.peek().typ]; ok {
		t.next()
		return &compareExpr{op: op, left: left, right: t.primary()}
	}
	return left
}

func (t *parser) primary() expr {
	switch token := t.next(); token.typ {
	case itemNumber:
		var f, err = strconv.ParseFloat(token.val, 64)
		if err != nil {
			t.errorf("invalid number %q", token.val)
		}
		return numberExpr(f)
	case itemString:
		return stringExpr(token.val)
	case itemVariable:
		return variableExpr(token.val)
	case itemAt:
		switch name := t.next(); name.typ {
		case itemStar:
			return &attrExpr{any: true}
		case itemName:
			if t.peek().typ == itemColon {
				t.next()
				var local = t.expect(itemName, "attribute name")
				return &attrExpr{prefix: name.val, local: local.val}
			}
			return &attrExpr{local: name.val}
		default:
			t.unexpected(name, "attribute reference")
		}
	case itemDot:
		return selfExpr{}
	case itemLeftParen:
		var e = t.expr()
		t.expect(itemRightParen, "parenthesized expression")
		return e
	case itemName:
		if t.peek().typ == itemLeftParen {
			t.next()
			return t.call(token.val)
		}
		return &childExpr{local: token.val}
	case itemStar:
		return &childExpr{}
	default:
		t.unexpected(token, "predicate")
	}
	panic("not reached")
}

// call parses the arguments of a function call whose name and opening
// parenthesis have been consumed.
func (t *parser) call(name string) expr {
	var fn, ok = functions[name]
	if !ok {
		t.errorf("unsupported function %s()", name)
	}
	var c = &callExpr{name: name, fn: fn}
	if t.peek().typ != itemRightParen {
		for {
			c.args = append(c.args, t.expr())
			if t.peek().typ != itemComma {
				break
			}
			t.next()
		}
	}
	t.expect(itemRightParen, name+"()")
	if len(c.args) < fn.minArgs || len(c.args) > fn.maxArgs {
		t.errorf("%s() takes %d to %d arguments, got %d", name, fn.minArgs, fn.maxArgs, len(c.args))
	}
	return c
}
