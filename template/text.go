package template

import (
	"regexp"
	"strings"

	"github.com/davidfraser/genshi/errortypes"
	"github.com/davidfraser/genshi/markup"
)

// textDirective matches a directive line of a text template: "#name value",
// optionally indented.
var textDirective = regexp.MustCompile(`^[ \t]*#(\w+)(?:[ \t]+(.*?))?[ \t]*\r?$`)

// textKinds are the directives available in text templates.
var textKinds = map[Kind]bool{
	Def: true, When: true, Otherwise: true, For: true, If: true, Choose: true, With: true,
}

// textBlock is a directive block of a text template being prepared.
type textBlock struct {
	directive Directive
	pos       markup.Pos
	events    []markup.Event
}

// prepareText prepares a text template.  Lines of the form "#name value"
// open a directive block that extends to the matching "#end" line; the
// directive lines themselves produce no output.  Lines starting with "##"
// are comments, and a leading "\#" stands for a literal "#".  Text between
// directives is interpolated as in markup templates.
func (p *preparer) prepareText(src, filename string) ([]markup.Event, error) {
	var root = &textBlock{}
	var stack = []*textBlock{root}
	var buf strings.Builder
	var bufPos markup.Pos

	var flush = func() error {
		if buf.Len() == 0 {
			return nil
		}
		var events, err = p.interpolateEvents(markup.TextEvent(buf.String(), bufPos))
		buf.Reset()
		if err != nil {
			return err
		}
		var top = stack[len(stack)-1]
		top.events = append(top.events, events...)
		return nil
	}

	var lines = strings.SplitAfter(src, "\n")
	for i, line := range lines {
		var pos = markup.Pos{Filename: filename, Line: i + 1, Col: 1}
		var trimmed = strings.TrimLeft(line, " \t")

		switch {
		case strings.HasPrefix(trimmed, "##"):
			continue

		case strings.HasPrefix(trimmed, `\#`):
			line = line[:len(line)-len(trimmed)] + trimmed[1:]

		case strings.HasPrefix(trimmed, "#"):
			var m = textDirective.FindStringSubmatch(strings.TrimSuffix(line, "\n"))
			if m == nil {
				break
			}
			if err := flush(); err != nil {
				return nil, err
			}
			var name, value = m[1], m[2]
			if name == "end" {
				if len(stack) == 1 {
					return nil, errortypes.NewSyntaxError(filename, pos.Line, pos.Col, "unexpected #end")
				}
				var block = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				var parent = stack[len(stack)-1]
				parent.events = append(parent.events, markup.Event{
					Kind: markup.Sub,
					Data: &sub{directives: []Directive{block.directive}, body: block.events},
					Pos:  block.pos,
				})
				continue
			}

			var kind, ok = lookupKind(name)
			if !ok || !textKinds[kind] {
				return nil, errortypes.NewBadDirectiveError(name, filename, pos.Line, pos.Col)
			}
			var d, err = p.directive(kind, value, pos, nil, hints{})
			if err != nil {
				return nil, err
			}
			stack = append(stack, &textBlock{directive: d, pos: pos})
			continue
		}

		if buf.Len() == 0 {
			bufPos = pos
		}
		buf.WriteString(line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(stack) > 1 {
		var open = stack[len(stack)-1]
		return nil, errortypes.NewSyntaxError(filename, open.pos.Line, open.pos.Col,
			"unclosed #%s block", open.directive.Kind())
	}
	return root.events, nil
}
