package i18n

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/robfig/gettext/po"

	"github.com/davidfraser/genshi/markup"
	"github.com/davidfraser/genshi/template"
)

// Message is a translatable message found in a template.
type Message struct {
	Ctxt        string
	Msgid       string
	MsgidPlural string
	Pos         markup.Pos
}

const quoted = `'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`

// gettextCall matches a call of a translation function with literal string
// arguments.
var gettextCall = regexp.MustCompile(`\b(_|gettext|ngettext|pgettext)\(\s*(` + quoted + `)(?:\s*,\s*(` + quoted + `))?`)

// Extract returns the translatable messages of a parsed template: the text
// outside ignored elements, the values of translatable attributes, and the
// literal arguments of translation function calls in expressions.  Text and
// attribute values that contain expressions are not messages themselves.
func (t *Translator) Extract(events []markup.Event) []Message {
	var msgs []Message
	var ignored = 0
	for _, ev := range events {
		switch ev.Kind {
		case markup.Start:
			if ignored > 0 || t.IgnoreTags[ev.Name.Local] {
				ignored++
			}
			for _, attr := range ev.Attrs {
				switch {
				case attr.Name.Space == template.Namespace || strings.Contains(attr.Value, "$"):
					msgs = append(msgs, calls(attr.Value, ev.Pos)...)
				case ignored == 0 && attr.Name.Space == "" && t.IncludeAttrs[attr.Name.Local]:
					if msgid := strings.TrimFunc(attr.Value, unicode.IsSpace); msgid != "" {
						msgs = append(msgs, Message{Msgid: msgid, Pos: ev.Pos})
					}
				}
			}
		case markup.End:
			if ignored > 0 {
				ignored--
			}
		case markup.Text:
			if strings.Contains(ev.Text, "$") {
				msgs = append(msgs, calls(ev.Text, ev.Pos)...)
				continue
			}
			if ignored > 0 {
				continue
			}
			if msgid := strings.TrimFunc(ev.Text, unicode.IsSpace); msgid != "" {
				msgs = append(msgs, Message{Msgid: msgid, Pos: ev.Pos})
			}
		}
	}
	return msgs
}

// ExtractFile parses a template file and extracts its messages.  The parser
// is chosen by the file extension: .html and .htm files are read as HTML,
// .txt files as text templates, whose messages are only the arguments of
// translation calls, and anything else as XML.
func (t *Translator) ExtractFile(filename string, r io.Reader) ([]Message, error) {
	var events []markup.Event
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		var src []byte
		if src, err = io.ReadAll(r); err != nil {
			return nil, err
		}
		return calls(string(src), markup.Pos{Filename: filename, Line: 1, Col: 1}), nil
	case ".html", ".htm":
		events, err = markup.ParseHTML(r, filename)
	default:
		events, err = markup.ParseXML(r, filename)
	}
	if err != nil {
		return nil, err
	}
	return t.Extract(events), nil
}

// calls finds the translation function calls in src.
func calls(src string, pos markup.Pos) []Message {
	var msgs []Message
	for _, m := range gettextCall.FindAllStringSubmatchIndex(src, -1) {
		var at = pos
		at.Line += strings.Count(src[:m[0]], "\n")
		var first = unquote(src[m[4]:m[5]])
		var second string
		if m[6] >= 0 {
			second = unquote(src[m[6]:m[7]])
		}
		switch src[m[2]:m[3]] {
		case "ngettext":
			msgs = append(msgs, Message{Msgid: first, MsgidPlural: second, Pos: at})
		case "pgettext":
			msgs = append(msgs, Message{Ctxt: first, Msgid: second, Pos: at})
		default:
			msgs = append(msgs, Message{Msgid: first, Pos: at})
		}
	}
	return msgs
}

// unquote returns the content of a quoted string literal.
func unquote(lit string) string {
	var body = lit[1 : len(lit)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(body[i])
			}
			continue
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}

// POTemplate builds a PO template from extracted messages.  Repeated
// messages are merged, collecting their source references.
func POTemplate(msgs []Message) po.File {
	var file po.File
	var index = make(map[string]int)
	for _, msg := range msgs {
		if msg.Msgid == "" {
			continue
		}
		var ref = fmt.Sprintf("%s:%d", msg.Pos.Filename, msg.Pos.Line)
		var k = key(msg.Ctxt, msg.Msgid)
		if i, ok := index[k]; ok {
			var m = &file.Messages[i]
			m.References = append(m.References, ref)
			if m.IdPlural == "" {
				m.IdPlural = msg.MsgidPlural
			}
			continue
		}
		index[k] = len(file.Messages)
		file.Messages = append(file.Messages, po.Message{
			Comment:  po.Comment{References: []string{ref}},
			Ctxt:     msg.Ctxt,
			Id:       msg.Msgid,
			IdPlural: msg.MsgidPlural,
		})
	}
	return file
}

func errArgs(name string, n, got int) error {
	return fmt.Errorf("%s() takes %d argument(s), %d given", name, n, got)
}
