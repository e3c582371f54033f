package template

import (
	"strings"

	"github.com/davidfraser/genshi/errortypes"
	"github.com/davidfraser/genshi/markup"
)

// interpolate splits text into literal parts and expressions.  Expressions
// are written ${expr} or $name, where name may be a dotted chain such as
// $user.name; $$ stands for a literal dollar sign.
func (p *preparer) interpolate(text string, pos markup.Pos) ([]part, error) {
	var parts []part
	var buf strings.Builder
	var flush = func() {
		if buf.Len() > 0 {
			parts = append(parts, part{text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(text); {
		if text[i] != '$' || i+1 == len(text) {
			buf.WriteByte(text[i])
			i++
			continue
		}

		var exprPos = pos
		exprPos.Line += strings.Count(text[:i], "\n")
		var src string
		switch next := text[i+1]; {
		case next == '$':
			buf.WriteByte('$')
			i += 2
			continue
		case next == '{':
			var end = closingBrace(text, i+2)
			if end < 0 {
				return nil, errortypes.NewSyntaxError(exprPos.Filename, exprPos.Line, exprPos.Col,
					"unterminated expression %q", text[i:])
			}
			src = strings.TrimSpace(text[i+2 : end])
			if src == "" {
				return nil, errortypes.NewSyntaxError(exprPos.Filename, exprPos.Line, exprPos.Col,
					"empty expression")
			}
			i = end + 1
		case isIdentStart(next):
			var end = identChain(text, i+1)
			src = text[i+1 : end]
			i = end
		default:
			buf.WriteByte('$')
			i++
			continue
		}

		var expr, err = p.compile(src, exprPos, "")
		if err != nil {
			return nil, err
		}
		flush()
		parts = append(parts, part{expr: expr})
	}
	flush()
	return parts, nil
}

// interpolateEvents interpolates a text event into text and expression events.
func (p *preparer) interpolateEvents(ev markup.Event) ([]markup.Event, error) {
	var parts, err = p.interpolate(ev.Text, ev.Pos)
	if err != nil {
		return nil, err
	}
	var events = make([]markup.Event, len(parts))
	for i, part := range parts {
		if part.expr == nil {
			events[i] = markup.TextEvent(part.text, ev.Pos)
		} else {
			events[i] = markup.Event{Kind: markup.Expr, Data: part.expr, Pos: ev.Pos}
		}
	}
	return events, nil
}

// closingBrace returns the index of the brace closing an expression that
// starts at i, skipping nested braces and quoted strings, or -1.
func closingBrace(text string, i int) int {
	var depth = 0
	var quote byte
	for ; i < len(text); i++ {
		var c = text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// identChain returns the end of a dotted identifier chain starting at i.
func identChain(text string, i int) int {
	for {
		for i < len(text) && isIdentChar(text[i]) {
			i++
		}
		if i+1 < len(text) && text[i] == '.' && isIdentStart(text[i+1]) {
			i++
			continue
		}
		return i
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || '0' <= c && c <= '9'
}
