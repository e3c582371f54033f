package markup

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Method selects an output format.
type Method int

const (
	XML   Method = iota // empty elements are collapsed: <br/>
	XHTML               // XML syntax that HTML browsers accept: <br />, <div></div>
	HTML                // HTML syntax: <br>, boolean attributes minimized
	TEXT                // text content only, unescaped
)

var methodNames = []string{"xml", "xhtml", "html", "text"}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod returns the Method with the given name.
func ParseMethod(name string) (Method, error) {
	for i, n := range methodNames {
		if strings.EqualFold(n, name) {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("unknown output method %q", name)
}

var booleanAttrs = map[string]bool{
	"checked": true, "compact": true, "declare": true, "defer": true,
	"disabled": true, "ismap": true, "multiple": true, "nohref": true,
	"noresize": true, "noshade": true, "nowrap": true, "readonly": true,
	"selected": true,
}

var rawTextElements = map[string]bool{"script": true, "style": true}

// Render serializes the events and returns the result as a string.
func Render(events iter.Seq[Event], method Method) (string, error) {
	var sb strings.Builder
	if err := Serialize(&sb, events, method); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Serialize writes the events to w in the given output format.  Template
// events (Expr, Sub) are not serializable and result in an error.
func Serialize(w io.Writer, events iter.Seq[Event], method Method) error {
	var bw = bufio.NewWriter(w)
	var s = serializer{w: bw, method: method}
	if method != TEXT {
		events = StripWhitespace(events, DefaultPreserve...)
	}
	for ev := range events {
		if s.err = s.event(ev); s.err != nil {
			return s.err
		}
	}
	if s.err = s.closePending(false); s.err != nil {
		return s.err
	}
	return bw.Flush()
}

type serializer struct {
	w       *bufio.Writer
	method  Method
	err     error
	scopes  [][]Namespace // namespace declarations per open element
	pending *Event        // start tag awaiting its first child
	raw     int           // depth inside script/style when serializing HTML
}

func (s *serializer) write(parts ...string) error {
	for _, p := range parts {
		if _, err := s.w.WriteString(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *serializer) event(ev Event) error {
	if s.method == TEXT {
		switch ev.Kind {
		case Text, Attr:
			return s.write(ev.Text)
		case Expr, Sub:
			return fmt.Errorf("%v: unexpected %v event in output", ev.Pos, ev.Kind)
		}
		return nil
	}

	if ev.Kind == End && s.pending != nil {
		return s.closePending(true)
	}
	if err := s.closePending(false); err != nil {
		return err
	}

	switch ev.Kind {
	case Start:
		s.scopes = append(s.scopes, ev.NS)
		s.pending = &ev
		if s.method == HTML && rawTextElements[ev.Name.Local] {
			s.raw++
		}
		return nil
	case End:
		var name = s.elementName(ev.Name)
		s.popScope(ev.Name)
		if s.method == HTML && voidElements[ev.Name.Local] && s.isHTML(ev.Name) {
			return nil
		}
		return s.write("</", name, ">")
	case Text, Attr:
		if s.raw > 0 {
			return s.write(ev.Text)
		}
		return escapeString(s.w, ev.Text, false)
	case Comment:
		return s.write("<!--", ev.Text, "-->")
	case PI:
		return s.write("<?", ev.Name.Local, " ", ev.Text, "?>")
	case Doctype:
		return s.write("<!DOCTYPE ", ev.Text, ">\n")
	case XMLDecl:
		if s.method == HTML {
			return nil
		}
		return s.write("<?xml ", ev.Text, "?>\n")
	}
	return fmt.Errorf("%v: unexpected %v event in output", ev.Pos, ev.Kind)
}

// closePending writes the buffered start tag.  If empty is set the element
// had no content and its end tag is written too.
func (s *serializer) closePending(empty bool) error {
	if s.pending == nil {
		return nil
	}
	var ev = *s.pending
	s.pending = nil

	var name = s.elementName(ev.Name)
	if err := s.write("<", name); err != nil {
		return err
	}
	if s.method != HTML {
		for _, ns := range ev.NS {
			var attr = "xmlns"
			if ns.Prefix != "" {
				attr += ":" + ns.Prefix
			}
			if err := s.attr(attr, ns.URI); err != nil {
				return err
			}
		}
	}
	for _, attr := range ev.Attrs {
		var attrName = s.attrName(attr.Name)
		if s.method == HTML && booleanAttrs[attrName] {
			if err := s.write(" ", attrName); err != nil {
				return err
			}
			continue
		}
		var value = attr.Value
		if s.method == XHTML && booleanAttrs[attrName] {
			value = attrName
		}
		if err := s.attr(attrName, value); err != nil {
			return err
		}
	}
	if !empty {
		return s.write(">")
	}

	s.popScope(ev.Name)
	var void = voidElements[ev.Name.Local] && s.isHTML(ev.Name)
	switch {
	case s.method == XML:
		return s.write("/>")
	case s.method == XHTML && void:
		return s.write(" />")
	case s.method == HTML && void:
		return s.write(">")
	}
	return s.write("></", name, ">")
}

func (s *serializer) attr(name, value string) error {
	if err := s.write(" ", name, `="`); err != nil {
		return err
	}
	if err := escapeString(s.w, value, true); err != nil {
		return err
	}
	return s.write(`"`)
}

func (s *serializer) popScope(name QName) {
	if n := len(s.scopes); n > 0 {
		s.scopes = s.scopes[:n-1]
	}
	if s.method == HTML && rawTextElements[name.Local] && s.raw > 0 {
		s.raw--
	}
}

func (s *serializer) isHTML(name QName) bool {
	return name.Space == "" || name.Space == XHTMLNamespace
}

// prefix returns the innermost prefix bound to uri.
func (s *serializer) prefix(uri string, allowDefault bool) (string, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for _, ns := range s.scopes[i] {
			if ns.URI == uri && (allowDefault || ns.Prefix != "") {
				return ns.Prefix, true
			}
		}
	}
	return "", false
}

func (s *serializer) elementName(name QName) string {
	if name.Space == "" || s.method == HTML {
		return name.Local
	}
	if prefix, ok := s.prefix(name.Space, true); ok && prefix != "" {
		return prefix + ":" + name.Local
	}
	return name.Local
}

func (s *serializer) attrName(name QName) string {
	switch {
	case name.Space == "":
		return name.Local
	case name.Space == XMLNamespace:
		return "xml:" + name.Local
	}
	if prefix, ok := s.prefix(name.Space, false); ok {
		return prefix + ":" + name.Local
	}
	return name.Local
}
