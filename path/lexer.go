package path

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer design from text/template, without the goroutine: items are
// buffered and states run on demand.

// item represents a token or text string returned from the scanner.
type item struct {
	typ itemType // The type of this item.
	pos int      // The starting position, in bytes, of this item in the input string.
	val string   // The value of this item.
}

func (i item) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	}
	return fmt.Sprintf("%q", i.val)
}

// itemType identifies the type of lexical items.
type itemType int

const (
	itemError itemType = iota // error occurred; value is text of error
	itemEOF

	itemSlash        // /
	itemDoubleSlash  // //
	itemDot          // .
	itemDotDot       // ..
	itemAt           // @
	itemStar         // *
	itemColon        // :
	itemDoubleColon  // ::
	itemName         // NCName, e.g. body, local-name
	itemVariable     // $tagname
	itemString       // 'text' or "text"
	itemNumber       // 1, 2.5
	itemPipe         // |
	itemComma        // ,
	itemLeftBracket  // [
	itemRightBracket // ]
	itemLeftParen    // (
	itemRightParen   // )
	itemEq           // =
	itemNotEq        // !=
	itemLt           // <
	itemLte          // <=
	itemGt           // >
	itemGte          // >=
)

const eof = -1

// stateFn represents the state of the scanner as a function that returns the next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the scanner.
type lexer struct {
	input string  // the string being scanned.
	state stateFn // the next lexing function to enter
	pos   int     // current position in the input.
	start int     // start position of this item.
	width int     // width of last rune read from input.
	items []item  // scanned items not yet consumed by the parser.
}

// next returns the next rune in the input.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup steps back one rune. Can be called only once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// emit passes an item back to the client.
func (l *lexer) emit(t itemType) {
	l.items = append(l.items, item{t, l.start, l.input[l.start:l.pos]})
	l.start = l.pos
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// errorf returns an error token and terminates the scan by passing
// back a nil pointer that will be the next state.
func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.items = append(l.items, item{itemError, l.start, fmt.Sprintf(format, args...)})
	return nil
}

// nextItem returns the next item from the input.
func (l *lexer) nextItem() item {
	for len(l.items) == 0 {
		if l.state == nil {
			return item{itemEOF, l.pos, ""}
		}
		l.state = l.state(l)
	}
	var it = l.items[0]
	l.items = l.items[1:]
	return it
}

// lex creates a new scanner for the input string.
func lex(input string) *lexer {
	return &lexer{input: input, state: lexPath}
}

// state functions

var singles = map[rune]itemType{
	'@': itemAt,
	'*': itemStar,
	'|': itemPipe,
	',': itemComma,
	'[': itemLeftBracket,
	']': itemRightBracket,
	'(': itemLeftParen,
	')': itemRightParen,
	'=': itemEq,
}

// lexPath scans the elements of a path expression.
func lexPath(l *lexer) stateFn {
	var r = l.next()
	if typ, ok := singles[r]; ok {
		l.emit(typ)
		return lexPath
	}
	switch {
	case r == eof:
		l.emit(itemEOF)
		return nil
	case unicode.IsSpace(r):
		l.ignore()
	case r == '/':
		if l.peek() == '/' {
			l.next()
			l.emit(itemDoubleSlash)
		} else {
			l.emit(itemSlash)
		}
	case r == '.':
		switch p := l.peek(); {
		case p == '.':
			l.next()
			l.emit(itemDotDot)
		case '0' <= p && p <= '9':
			return lexNumber
		default:
			l.emit(itemDot)
		}
	case r == ':':
		if l.peek() == ':' {
			l.next()
			l.emit(itemDoubleColon)
		} else {
			l.emit(itemColon)
		}
	case r == '!':
		if l.next() != '=' {
			return l.errorf("expected '=' after '!'")
		}
		l.emit(itemNotEq)
	case r == '<':
		l.emit(l.orEqual(itemLt, itemLte))
	case r == '>':
		l.emit(l.orEqual(itemGt, itemGte))
	case r == '\'' || r == '"':
		return lexQuote(r)
	case r == '$':
		l.ignore()
		if !isNameStart(l.peek()) {
			return l.errorf("expected variable name after '$'")
		}
		lexNameRunes(l)
		l.emit(itemVariable)
	case '0' <= r && r <= '9':
		return lexNumber
	case isNameStart(r):
		lexNameRunes(l)
		l.emit(itemName)
	default:
		return l.errorf("unexpected character %q", r)
	}
	return lexPath
}

// orEqual consumes a following '=' and returns withEq if there is one.
func (l *lexer) orEqual(plain, withEq itemType) itemType {
	if l.peek() == '=' {
		l.next()
		return withEq
	}
	return plain
}

// lexQuote scans a quoted string.  Paths have no escapes; the string ends at
// the next matching quote.
func lexQuote(quote rune) stateFn {
	return func(l *lexer) stateFn {
		var i = strings.IndexRune(l.input[l.pos:], quote)
		if i < 0 {
			return l.errorf("unterminated string")
		}
		l.start++
		l.pos += i
		l.emit(itemString)
		l.next()
		l.ignore()
		return lexPath
	}
}

// lexNumber scans a decimal number.
func lexNumber(l *lexer) stateFn {
	var digits = func() {
		for r := l.peek(); '0' <= r && r <= '9'; r = l.peek() {
			l.next()
		}
	}
	digits()
	if l.peek() == '.' {
		l.next()
		digits()
	}
	l.emit(itemNumber)
	return lexPath
}

func lexNameRunes(l *lexer) {
	for isNameChar(l.peek()) {
		l.next()
	}
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r)
}
