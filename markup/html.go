package markup

import (
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/davidfraser/genshi/errortypes"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// ParseHTML reads an HTML document leniently and returns its events.  Void
// elements are closed immediately, unclosed elements are closed when an
// enclosing element ends, and stray end tags are dropped.  Prefixed names are
// resolved against xmlns:* declarations in scope.
func ParseHTML(r io.Reader, filename string) ([]Event, error) {
	var p = htmlParser{
		z:        html.NewTokenizer(r),
		filename: filename,
		line:     1,
		col:      1,
	}
	return p.parse()
}

type openElement struct {
	tag   string
	name  QName
	scope map[string]string
}

type htmlParser struct {
	z         *html.Tokenizer
	filename  string
	line, col int
	stack     []openElement
	events    []Event
}

// advance moves the position past raw.
func (p *htmlParser) advance(raw []byte) {
	for _, b := range raw {
		if b == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
	}
}

func (p *htmlParser) parse() ([]Event, error) {
	for {
		var tt = p.z.Next()
		var pos = Pos{p.filename, p.line, p.col}
		p.advance(p.z.Raw())

		switch tt {
		case html.ErrorToken:
			if err := p.z.Err(); err != io.EOF {
				return nil, errortypes.NewSyntaxError(p.filename, pos.Line, pos.Col, "%s", err.Error())
			}
			for len(p.stack) > 0 {
				p.closeTop(pos)
			}
			return p.events, nil
		case html.TextToken:
			p.events = append(p.events, TextEvent(string(p.z.Text()), pos))
		case html.StartTagToken, html.SelfClosingTagToken:
			var tok = p.z.Token()
			p.start(tok, pos)
			if tt == html.SelfClosingTagToken || voidElements[tok.Data] {
				p.closeTop(pos)
			}
		case html.EndTagToken:
			var tok = p.z.Token()
			var i = slices.IndexFunc(p.stack, func(el openElement) bool { return el.tag == tok.Data })
			if i < 0 {
				continue
			}
			for len(p.stack) > i {
				p.closeTop(pos)
			}
		case html.CommentToken:
			p.events = append(p.events, Event{Kind: Comment, Text: string(p.z.Text()), Pos: pos})
		case html.DoctypeToken:
			p.events = append(p.events, Event{Kind: Doctype, Text: string(p.z.Text()), Pos: pos})
		}
	}
}

func (p *htmlParser) start(tok html.Token, pos Pos) {
	var ev = Event{Kind: Start, Pos: pos}
	var scope = map[string]string{}
	if len(p.stack) > 0 {
		scope = p.stack[len(p.stack)-1].scope
	}

	// declarations first, so the element's own names can use them
	var declared = false
	for _, attr := range tok.Attr {
		var prefix, ok = strings.CutPrefix(attr.Key, "xmlns")
		if !ok || (prefix != "" && prefix[0] != ':') {
			continue
		}
		if !declared {
			scope = copyScope(scope)
			declared = true
		}
		prefix = strings.TrimPrefix(prefix, ":")
		scope[prefix] = attr.Val
		ev.NS = append(ev.NS, Namespace{prefix, attr.Val})
	}

	ev.Name = resolve(scope, tok.Data, true)
	for _, attr := range tok.Attr {
		if attr.Key == "xmlns" || strings.HasPrefix(attr.Key, "xmlns:") {
			continue
		}
		ev.Attrs = append(ev.Attrs, Attribute{resolve(scope, attr.Key, false), attr.Val})
	}
	p.stack = append(p.stack, openElement{tok.Data, ev.Name, scope})
	p.events = append(p.events, ev)
}

func (p *htmlParser) closeTop(pos Pos) {
	var top = p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.events = append(p.events, Event{Kind: End, Name: top.name, Pos: pos})
}

func copyScope(scope map[string]string) map[string]string {
	var result = make(map[string]string, len(scope)+1)
	for k, v := range scope {
		result[k] = v
	}
	return result
}

// resolve maps a possibly prefixed name to a QName.  Unprefixed element names
// take the default namespace; unprefixed attribute names have none.
func resolve(scope map[string]string, name string, element bool) QName {
	if prefix, local, ok := strings.Cut(name, ":"); ok {
		if prefix == "xml" {
			return QName{XMLNamespace, local}
		}
		if uri, ok := scope[prefix]; ok {
			return QName{uri, local}
		}
		return Name(name)
	}
	if element {
		return QName{scope[""], name}
	}
	return Name(name)
}
