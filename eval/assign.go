package eval

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/davidfraser/genshi/data"
)

// Target is an assignment target: a single name, or a tuple of targets that
// a value is unpacked into.
type Target struct {
	Name  string    // set for a single name
	Elems []*Target // set for a tuple
}

// ParseTarget parses a target such as "x", "k, v", "(a, (b, c))" or "[a, b]".
func ParseTarget(text string) (*Target, error) {
	return parseTarget(text, 0)
}

func parseTarget(text string, offset int) (*Target, error) {
	var trimmed, off = trim(text, offset)
	if trimmed == "" {
		return nil, &SyntaxError{Msg: "empty assignment target", Offset: off}
	}
	var parts, err = splitTop(trimmed, off, sepByte(','))
	if err != nil {
		return nil, err
	}
	if len(parts) > 1 {
		var t = &Target{Elems: []*Target{}}
		for i, part := range parts {
			if i > 0 && i == len(parts)-1 && strings.TrimSpace(part.text) == "" {
				break // trailing comma
			}
			var elem, err = parseTarget(part.text, part.offset)
			if err != nil {
				return nil, err
			}
			t.Elems = append(t.Elems, elem)
		}
		return t, nil
	}
	if inner, ok := unwrap(trimmed); ok {
		var elem, err = parseTarget(inner, off+1)
		if err != nil || elem.Name == "" || trimmed[0] == '(' {
			return elem, err
		}
		return &Target{Elems: []*Target{elem}}, nil
	}
	if !isIdentifier(trimmed) {
		return nil, &SyntaxError{Msg: fmt.Sprintf("invalid assignment target %q", trimmed), Offset: off}
	}
	return &Target{Name: trimmed}, nil
}

// Names returns the names bound by the target, in order.
func (t *Target) Names() []string {
	if t.Name != "" {
		return []string{t.Name}
	}
	var names []string
	for _, elem := range t.Elems {
		names = append(names, elem.Names()...)
	}
	return names
}

func (t *Target) String() string {
	if t.Name != "" {
		return t.Name
	}
	var elems = make([]string, len(t.Elems))
	for i, elem := range t.Elems {
		elems[i] = elem.String()
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

// Assign binds value to the target in scope, unpacking tuples recursively.
func (t *Target) Assign(scope map[string]any, value any) error {
	if t.Name != "" {
		scope[t.Name] = value
		return nil
	}
	var seq, err = data.Iterate(value)
	if err != nil {
		return fmt.Errorf("cannot unpack: %w", err)
	}
	var values []any
	for v := range seq {
		values = append(values, v)
		if len(values) > len(t.Elems) {
			break
		}
	}
	if len(values) != len(t.Elems) {
		return fmt.Errorf("cannot unpack %s into %d names", data.Repr(value), len(t.Elems))
	}
	for i, elem := range t.Elems {
		if err := elem.Assign(scope, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// ParseFor splits a loop clause "target in expr".  Any whitespace may
// surround the "in".
func ParseFor(text string) (*Target, string, error) {
	var i, err = indexTop(text, 0, inKeyword)
	if err != nil {
		return nil, "", err
	}
	if i < 0 {
		return nil, "", &SyntaxError{Msg: `"in" keyword missing`}
	}
	var target *Target
	if target, err = ParseTarget(text[:i]); err != nil {
		return nil, "", err
	}
	var end = i + inKeyword(text, i)
	var src = strings.TrimSpace(text[end:])
	if src == "" {
		return nil, "", &SyntaxError{Msg: "missing loop expression", Offset: end}
	}
	return target, src, nil
}

// inKeyword returns the length of the "in" keyword starting at s[i] together
// with the whitespace around it, or 0.
func inKeyword(s string, i int) int {
	var j = i
	for j < len(s) && unicode.IsSpace(rune(s[j])) {
		j++
	}
	if j == i || !strings.HasPrefix(s[j:], "in") {
		return 0
	}
	var k = j + 2
	for k < len(s) && unicode.IsSpace(rune(s[k])) {
		k++
	}
	if k == j+2 {
		return 0
	}
	return k - i
}

// Statement is one "target [= target...] = expr" assignment.
type Statement struct {
	Targets []*Target
	Expr    string
	Offset  int // of Expr within the statement list
}

// ParseStatements parses a semicolon-separated list of assignments.  A
// trailing semicolon is allowed.
func ParseStatements(text string) ([]Statement, error) {
	var parts, err = splitTop(text, 0, sepByte(';'))
	if err != nil {
		return nil, err
	}
	var stmts []Statement
	for _, part := range parts {
		if strings.TrimSpace(part.text) == "" {
			continue
		}
		var sides, err = splitTop(part.text, part.offset, assignSep)
		if err != nil {
			return nil, err
		}
		if len(sides) < 2 {
			return nil, &SyntaxError{Msg: fmt.Sprintf("expected assignment in %q", strings.TrimSpace(part.text)), Offset: part.offset}
		}
		var last = sides[len(sides)-1]
		var src, off = trim(last.text, last.offset)
		if src == "" {
			return nil, &SyntaxError{Msg: "missing value in assignment", Offset: last.offset}
		}
		var stmt = Statement{Expr: src, Offset: off}
		for _, side := range sides[:len(sides)-1] {
			var target, err = parseTarget(side.text, side.offset)
			if err != nil {
				return nil, err
			}
			stmt.Targets = append(stmt.Targets, target)
		}
		stmts = append(stmts, stmt)
	}
	if len(stmts) == 0 {
		return nil, &SyntaxError{Msg: "no assignments"}
	}
	return stmts, nil
}

// assignSep matches a single = that is not part of a comparison.
func assignSep(s string, i int) int {
	if s[i] != '=' {
		return 0
	}
	if i > 0 && strings.IndexByte("=!<>", s[i-1]) >= 0 {
		return 0
	}
	if i+1 < len(s) && s[i+1] == '=' {
		return 0
	}
	return 1
}

// Param is a declared parameter of a template function.  Default is the
// source of its default value, empty if the parameter is required.
type Param struct {
	Name    string
	Default string
}

// Signature is a parsed template function signature.
type Signature struct {
	Name    string
	Params  []Param
	Varargs string // name of the *args collector, if any
	Varkw   string // name of the **kwargs collector, if any
}

// ParseSignature parses "name", "name()" or "name(a, b=expr, *args, **kw)".
func ParseSignature(text string) (*Signature, error) {
	var trimmed, off = trim(text, 0)
	var paren = strings.IndexByte(trimmed, '(')
	var name = trimmed
	if paren >= 0 {
		name = strings.TrimSpace(trimmed[:paren])
	}
	if !isIdentifier(name) {
		return nil, &SyntaxError{Msg: fmt.Sprintf("invalid function name %q", name), Offset: off}
	}
	var sig = &Signature{Name: name}
	if paren < 0 {
		return sig, nil
	}
	if !strings.HasSuffix(trimmed, ")") {
		return nil, &SyntaxError{Msg: "expected ')' at end of signature", Offset: off + len(trimmed)}
	}
	var params, err = splitTop(trimmed[paren+1:len(trimmed)-1], off+paren+1, sepByte(','))
	if err != nil {
		return nil, err
	}
	var seen = map[string]bool{}
	for i, p := range params {
		var text, poff = trim(p.text, p.offset)
		if text == "" {
			if i == len(params)-1 {
				break
			}
			return nil, &SyntaxError{Msg: "empty parameter", Offset: poff}
		}
		if sig.Varkw != "" {
			return nil, &SyntaxError{Msg: "parameter after **" + sig.Varkw, Offset: poff}
		}
		var param Param
		switch {
		case strings.HasPrefix(text, "**"):
			param.Name = strings.TrimSpace(text[2:])
			sig.Varkw = param.Name
		case strings.HasPrefix(text, "*"):
			param.Name = strings.TrimSpace(text[1:])
			sig.Varargs = param.Name
		default:
			var sides, err = splitTop(text, poff, assignSep)
			if err != nil {
				return nil, err
			}
			param.Name = strings.TrimSpace(sides[0].text)
			if len(sides) == 2 {
				if param.Default = strings.TrimSpace(sides[1].text); param.Default == "" {
					return nil, &SyntaxError{Msg: "missing default for " + param.Name, Offset: sides[1].offset}
				}
			} else if len(sides) > 2 {
				return nil, &SyntaxError{Msg: "invalid parameter " + text, Offset: poff}
			}
		}
		if !isIdentifier(param.Name) {
			return nil, &SyntaxError{Msg: fmt.Sprintf("invalid parameter name %q", param.Name), Offset: poff}
		}
		if seen[param.Name] {
			return nil, &SyntaxError{Msg: fmt.Sprintf("duplicate parameter %q", param.Name), Offset: poff}
		}
		seen[param.Name] = true
		if param.Name != sig.Varargs && param.Name != sig.Varkw {
			if sig.Varargs != "" {
				return nil, &SyntaxError{Msg: "parameter after *" + sig.Varargs, Offset: poff}
			}
			sig.Params = append(sig.Params, param)
		}
	}
	return sig, nil
}

func (s *Signature) String() string {
	var params []string
	for _, p := range s.Params {
		if p.Default != "" {
			params = append(params, p.Name+"="+p.Default)
		} else {
			params = append(params, p.Name)
		}
	}
	if s.Varargs != "" {
		params = append(params, "*"+s.Varargs)
	}
	if s.Varkw != "" {
		params = append(params, "**"+s.Varkw)
	}
	return s.Name + "(" + strings.Join(params, ", ") + ")"
}

// span is a piece of a larger source string.
type span struct {
	text   string
	offset int
}

// sepByte returns a separator matcher for a single byte.
func sepByte(b byte) func(string, int) int {
	return func(s string, i int) int {
		if s[i] == b {
			return 1
		}
		return 0
	}
}

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}'}

// walkTop calls visit for each byte of s outside quotes and brackets.  visit
// returns the number of bytes it consumed; a negative result stops the walk.
func walkTop(s string, offset int, visit func(i int) int) error {
	var (
		stack []byte
		quote byte
		qpos  int
	)
	for i := 0; i < len(s); i++ {
		var c = s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote, qpos = c, i
		case closers[c] != 0:
			stack = append(stack, closers[c])
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return &SyntaxError{Msg: fmt.Sprintf("unbalanced %q", c), Offset: offset + i}
			}
			stack = stack[:len(stack)-1]
		case len(stack) == 0:
			var skip = visit(i)
			if skip < 0 {
				return nil
			}
			if skip > 0 {
				i += skip - 1
			}
		}
	}
	if quote != 0 {
		return &SyntaxError{Msg: "unterminated string", Offset: offset + qpos}
	}
	if len(stack) > 0 {
		return &SyntaxError{Msg: fmt.Sprintf("expected %q", stack[len(stack)-1]), Offset: offset + len(s)}
	}
	return nil
}

// splitTop splits s at top-level separators.
func splitTop(s string, offset int, sep func(string, int) int) ([]span, error) {
	var parts []span
	var start = 0
	var err = walkTop(s, offset, func(i int) int {
		var n = sep(s, i)
		if n > 0 {
			parts = append(parts, span{s[start:i], offset + start})
			start = i + n
		}
		return n
	})
	if err != nil {
		return nil, err
	}
	return append(parts, span{s[start:], offset + start}), nil
}

// indexTop returns the index of the first top-level separator, or -1.
func indexTop(s string, offset int, sep func(string, int) int) (int, error) {
	var found = -1
	var err = walkTop(s, offset, func(i int) int {
		if sep(s, i) > 0 {
			found = i
			return -1
		}
		return 0
	})
	return found, err
}

// unwrap returns the inside of s if s is entirely enclosed in one pair of
// parentheses or brackets.
func unwrap(s string) (string, bool) {
	if len(s) < 2 || (s[0] != '(' && s[0] != '[') || s[len(s)-1] != closers[s[0]] {
		return "", false
	}
	// the opening bracket must close at the last byte
	var depth, closedAt = 0, -1
	for i := 0; i < len(s) && closedAt < 0; i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				closedAt = i
			}
		case '\'', '"':
			var end = strings.IndexByte(s[i+1:], s[i])
			if end < 0 {
				return "", false
			}
			i += end + 1
		}
	}
	if closedAt != len(s)-1 {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func trim(s string, offset int) (string, int) {
	var left = strings.TrimLeftFunc(s, unicode.IsSpace)
	return strings.TrimRightFunc(left, unicode.IsSpace), offset + len(s) - len(left)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	var r, _ = utf8.DecodeRuneInString(s)
	return !unicode.IsDigit(r)
}
