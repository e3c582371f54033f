package markup

import (
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/google/go-cmp/cmp"

	"github.com/davidfraser/genshi/errortypes"
)

func TestParseXML(t *testing.T) {
	var events, err = ParseXML(strings.NewReader(`<?xml version="1.0"?>
<doc xmlns:x="urn:x" a="1">
  <x:item x:b="2">&amp;&nbsp;</x:item><!-- note -->
</doc>`), "doc.xml")
	if err != nil {
		t.Fatal(err)
	}

	var expected = []Event{
		{Kind: XMLDecl, Text: `version="1.0"`},
		{Kind: Start, Name: Name("doc"), NS: []Namespace{{"x", "urn:x"}}, Attrs: Attrs{{Name("a"), "1"}}},
		{Kind: Text, Text: "\n  "},
		{Kind: Start, Name: QName{"urn:x", "item"}, Attrs: Attrs{{QName{"urn:x", "b"}, "2"}}},
		{Kind: Text, Text: "&\u00a0"},
		{Kind: End, Name: QName{"urn:x", "item"}},
		{Kind: Comment, Text: " note "},
		{Kind: Text, Text: "\n"},
		{Kind: End, Name: Name("doc")},
	}
	var ignorePos = cmp.Transformer("pos", func(e Event) Event { e.Pos = Pos{}; return e })
	if d := cmp.Diff(expected, events, ignorePos); d != "" {
		t.Errorf("unexpected events (-want +got):\n%s", d)
	}

	if events[1].Pos.Line != 2 || events[3].Pos.Line != 3 || events[3].Pos.Filename != "doc.xml" {
		t.Errorf("unexpected positions: %v, %v", events[1].Pos, events[3].Pos)
	}
}

func TestParseXMLError(t *testing.T) {
	var _, err = ParseXML(strings.NewReader("<doc>\n<a></b></doc>"), "bad.xml")
	var fp = errortypes.ToErrFilePos(err)
	if fp == nil {
		t.Fatalf("expected positioned error, got %v", err)
	}
	if fp.File() != "bad.xml" || fp.Line() != 2 {
		t.Errorf("expected bad.xml:2, got %s:%d", fp.File(), fp.Line())
	}
}

func TestParseHTML(t *testing.T) {
	var events, err = ParseHTML(strings.NewReader(`<div xmlns:py="urn:py">
<p py:if="x">a<br>b</p><img src="i.png"/><span>
</div>`), "page.html")
	if err != nil {
		t.Fatal(err)
	}

	var expected = []Event{
		{Kind: Start, Name: Name("div"), NS: []Namespace{{"py", "urn:py"}}},
		{Kind: Text, Text: "\n"},
		{Kind: Start, Name: Name("p"), Attrs: Attrs{{QName{"urn:py", "if"}, "x"}}},
		{Kind: Text, Text: "a"},
		{Kind: Start, Name: Name("br")},
		{Kind: End, Name: Name("br")},
		{Kind: Text, Text: "b"},
		{Kind: End, Name: Name("p")},
		{Kind: Start, Name: Name("img"), Attrs: Attrs{{Name("src"), "i.png"}}},
		{Kind: End, Name: Name("img")},
		{Kind: Start, Name: Name("span")},
		{Kind: Text, Text: "\n"},
		{Kind: End, Name: Name("span")},
		{Kind: End, Name: Name("div")},
	}
	var ignorePos = cmp.Transformer("pos", func(e Event) Event { e.Pos = Pos{}; return e })
	if d := cmp.Diff(expected, events, ignorePos); d != "" {
		t.Errorf("unexpected events (-want +got):\n%s", d)
	}
	if events[2].Pos.Line != 2 || events[2].Pos.Col != 1 {
		t.Errorf("expected <p> at 2:1, got %v", events[2].Pos)
	}
}

func TestSerialize(t *testing.T) {
	const source = `<html xmlns="http://www.w3.org/1999/xhtml" xmlns:x="urn:x">
  <body>
    <br/><input type="checkbox" checked="checked"/>
    <div></div><x:a x:b="&quot;">1 &lt; 2</x:a>
    <script>if (a &lt; b) {}</script>
  </body>
</html>`
	var tests = []struct {
		method   Method
		expected string
	}{
		{XML, `<html xmlns="http://www.w3.org/1999/xhtml" xmlns:x="urn:x">
  <body>
    <br/><input type="checkbox" checked="checked"/>
    <div/><x:a x:b="&#34;">1 &lt; 2</x:a>
    <script>if (a &lt; b) {}</script>
  </body>
</html>`},
		{XHTML, `<html xmlns="http://www.w3.org/1999/xhtml" xmlns:x="urn:x">
  <body>
    <br /><input type="checkbox" checked="checked" />
    <div></div><x:a x:b="&#34;">1 &lt; 2</x:a>
    <script>if (a &lt; b) {}</script>
  </body>
</html>`},
		{HTML, `<html>
  <body>
    <br><input type="checkbox" checked>
    <div></div><a x:b="&#34;">1 &lt; 2</a>
    <script>if (a < b) {}</script>
  </body>
</html>`},
		{TEXT, "\n  \n    \n    1 < 2\n    if (a < b) {}\n  \n"},
	}

	var events, err = ParseXML(strings.NewReader(source), "page.html")
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		var got, err = Render(Stream(events), test.method)
		if err != nil {
			t.Errorf("%v: %v", test.method, err)
			continue
		}
		if got != test.expected {
			t.Errorf("%v: unexpected output:\n%v", test.method, diff.LineDiff(test.expected, got))
		}
	}
}

func TestSerializeRejectsTemplateEvents(t *testing.T) {
	var _, err = Render(Stream([]Event{{Kind: Expr}}), XML)
	if err == nil {
		t.Errorf("expected error for EXPR event")
	}
}

func TestStripWhitespace(t *testing.T) {
	var events = []Event{
		{Kind: Start, Name: Name("doc")},
		TextEvent("\n    ", Pos{}),
		TextEvent("  \n\n  ", Pos{}),
		{Kind: Start, Name: Name("pre")},
		TextEvent("a  \n\n b", Pos{}),
		{Kind: End, Name: Name("pre")},
		TextEvent("x \t\ny", Pos{}),
		{Kind: End, Name: Name("doc")},
	}
	var got []string
	for ev := range StripWhitespace(Stream(events), "pre") {
		if ev.Kind == Text {
			got = append(got, ev.Text)
		}
	}
	var expected = []string{"\n  ", "a  \n\n b", "x\ny"}
	if d := cmp.Diff(expected, got); d != "" {
		t.Errorf("unexpected text (-want +got):\n%s", d)
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"xml", "XHTML", "html", "text"} {
		var m, err = ParseMethod(name)
		if err != nil || !strings.EqualFold(m.String(), name) {
			t.Errorf("%s: got %v, %v", name, m, err)
		}
	}
	if _, err := ParseMethod("json"); err == nil {
		t.Errorf("expected error for unknown method")
	}
}

func TestAttrs(t *testing.T) {
	var a = Attrs{{Name("id"), "1"}, {Name("class"), "foo"}}
	var b = a.Set(Name("class"), "bar").Set(Name("title"), "t").Remove(Name("id"))
	if d := cmp.Diff(Attrs{{Name("class"), "bar"}, {Name("title"), "t"}}, b); d != "" {
		t.Errorf("unexpected attrs (-want +got):\n%s", d)
	}
	if v, _ := a.Get(Name("class")); v != "foo" {
		t.Errorf("expected receiver to be unchanged, got %q", v)
	}
	if s := b.String(); s != "bar t" {
		t.Errorf("unexpected string %q", s)
	}
}

func TestFragmentString(t *testing.T) {
	var f = Fragment{
		{Kind: Attr, Name: Name("title"), Text: "Cool"},
		{Kind: Start, Name: Name("b")},
		TextEvent("Joe", Pos{}),
		{Kind: End, Name: Name("b")},
	}
	if s := f.String(); s != "CoolJoe" {
		t.Errorf("unexpected string %q", s)
	}
	if attrs := f.Attrs(); len(attrs) != 1 || attrs[0].Value != "Cool" {
		t.Errorf("unexpected attrs %v", attrs)
	}
}
