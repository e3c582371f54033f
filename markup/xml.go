package markup

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/davidfraser/genshi/errortypes"
)

// ParseXML reads a well-formed XML document and returns its events.  Names
// are resolved to their namespace URIs and namespace declarations are moved
// from the attributes to Event.NS.  HTML character entities such as &nbsp; are
// accepted.  Whitespace outside of the root element is dropped.
func ParseXML(r io.Reader, filename string) ([]Event, error) {
	var d = xml.NewDecoder(r)
	d.Strict = true
	d.Entity = xml.HTMLEntity

	var events []Event
	var depth = 0
	for {
		var line, col = d.InputPos()
		var tok, err = d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if se, ok := err.(*xml.SyntaxError); ok {
				return nil, errortypes.NewSyntaxError(filename, se.Line, 0, "%s", se.Msg)
			}
			return nil, errortypes.NewSyntaxError(filename, line, col, "%s", err.Error())
		}

		var pos = Pos{filename, line, col}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
			events = append(events, startEvent(tok, pos))
		case xml.EndElement:
			depth--
			events = append(events, Event{Kind: End, Name: QName(tok.Name), Pos: pos})
		case xml.CharData:
			if depth == 0 && strings.TrimSpace(string(tok)) == "" {
				continue
			}
			events = append(events, TextEvent(string(tok), pos))
		case xml.Comment:
			events = append(events, Event{Kind: Comment, Text: string(tok), Pos: pos})
		case xml.ProcInst:
			if tok.Target == "xml" {
				events = append(events, Event{Kind: XMLDecl, Text: string(tok.Inst), Pos: pos})
				continue
			}
			events = append(events, Event{Kind: PI, Name: Name(tok.Target), Text: string(tok.Inst), Pos: pos})
		case xml.Directive:
			if text := string(tok); strings.HasPrefix(strings.ToUpper(text), "DOCTYPE") {
				events = append(events, Event{Kind: Doctype, Text: strings.TrimSpace(text[len("DOCTYPE"):]), Pos: pos})
			}
		}
	}
	return events, nil
}

func startEvent(tok xml.StartElement, pos Pos) Event {
	var ev = Event{Kind: Start, Name: QName(tok.Name), Pos: pos}
	for _, attr := range tok.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			ev.NS = append(ev.NS, Namespace{attr.Name.Local, attr.Value})
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			ev.NS = append(ev.NS, Namespace{"", attr.Value})
		default:
			ev.Attrs = append(ev.Attrs, Attribute{QName(attr.Name), attr.Value})
		}
	}
	return ev
}
