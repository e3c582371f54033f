// Package markup defines the event stream model shared by the tokenizers, the
// template engine and the serializers.
//
// A document is a flat sequence of events.  Elements are bracketed by Start
// and End events; character data, comments and processing instructions appear
// in document order between them.  Templates add two more kinds: Expr events
// carry a compiled expression to be evaluated at render time, and Sub events
// bundle a directive chain with the events it applies to.
package markup

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Kind identifies the type of an event.
type Kind int

const (
	Start   Kind = iota + 1 // element start tag: Name, Attrs, NS
	End                     // element end tag: Name
	Text                    // character data: Text
	Comment                 // comment: Text
	PI                      // processing instruction: Name.Local is the target, Text the data
	Doctype                 // document type declaration: Text
	XMLDecl                 // XML declaration: Text
	Attr                    // a single attribute, produced by path selection: Name, Text
	Expr                    // template expression: Data
	Sub                     // directive chain with its events: Data
)

var kindNames = map[Kind]string{
	Start:   "START",
	End:     "END",
	Text:    "TEXT",
	Comment: "COMMENT",
	PI:      "PI",
	Doctype: "DOCTYPE",
	XMLDecl: "XML_DECL",
	Attr:    "ATTR",
	Expr:    "EXPR",
	Sub:     "SUB",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is the source location of an event.
type Pos struct {
	Filename string
	Line     int
	Col      int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Col)
}

// QName is a namespace-qualified name.  Space holds the namespace URI, not
// the prefix used in the source.
type QName struct {
	Space string
	Local string
}

// Name returns an unqualified QName.
func Name(local string) QName {
	return QName{Local: local}
}

func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// Namespace is a prefix declaration.  The default namespace has an empty
// Prefix.
type Namespace struct {
	Prefix string
	URI    string
}

// Well-known namespaces.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XHTMLNamespace = "http://www.w3.org/1999/xhtml"
)

// Attribute is a name/value pair on a start tag.
type Attribute struct {
	Name  QName
	Value string
}

// Attrs is an ordered attribute list.
type Attrs []Attribute

// Get returns the value of the named attribute.
func (a Attrs) Get(name QName) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Set returns the attributes with name set to value.  An existing attribute
// keeps its position; a new one is appended.  The receiver is not modified.
func (a Attrs) Set(name QName, value string) Attrs {
	var result = slices.Clone(a)
	for i := range result {
		if result[i].Name == name {
			result[i].Value = value
			return result
		}
	}
	return append(result, Attribute{name, value})
}

// Remove returns the attributes without name.  The receiver is not modified.
func (a Attrs) Remove(name QName) Attrs {
	return slices.DeleteFunc(slices.Clone(a), func(attr Attribute) bool {
		return attr.Name == name
	})
}

// String joins the attribute values with single spaces.
func (a Attrs) String() string {
	var values = make([]string, len(a))
	for i, attr := range a {
		values[i] = attr.Value
	}
	return strings.Join(values, " ")
}

// Event is one item of a markup stream.  Which fields are set depends on Kind.
type Event struct {
	Kind  Kind
	Name  QName
	Attrs Attrs
	NS    []Namespace
	Text  string
	Data  interface{}
	Pos   Pos
}

func (e Event) String() string {
	switch e.Kind {
	case Start:
		return fmt.Sprintf("%v %v %v", e.Kind, e.Name, e.Attrs)
	case End, Attr:
		return fmt.Sprintf("%v %v", e.Kind, e.Name)
	case Expr, Sub:
		return fmt.Sprintf("%v %v", e.Kind, e.Data)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Text)
}

// TextEvent returns a Text event.
func TextEvent(text string, pos Pos) Event {
	return Event{Kind: Text, Text: text, Pos: pos}
}

// Stream returns a sequence over the given events.
func Stream(events []Event) iter.Seq[Event] {
	return slices.Values(events)
}

// Fragment is a run of events selected from a stream: whole elements, text
// and Attr events.
type Fragment []Event

// String returns the text content of the fragment.  Attributes contribute
// their values, separated by spaces.
func (f Fragment) String() string {
	var sb strings.Builder
	var attrs = f.Attrs()
	if len(attrs) > 0 {
		sb.WriteString(attrs.String())
	}
	for _, ev := range f {
		if ev.Kind == Text {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

// Attrs collects the Attr events of the fragment.
func (f Fragment) Attrs() Attrs {
	var attrs Attrs
	for _, ev := range f {
		if ev.Kind == Attr {
			attrs = append(attrs, Attribute{ev.Name, ev.Text})
		}
	}
	return attrs
}

// MarshalValue keeps fragments intact when template data is converted.
func (f Fragment) MarshalValue() interface{} {
	return f
}
