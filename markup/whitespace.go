package markup

import (
	"iter"
	"regexp"
	"strings"
)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankLines    = regexp.MustCompile(`\n{2,}`)
)

// DefaultPreserve lists the elements whose content StripWhitespace leaves
// untouched by default.
var DefaultPreserve = []string{"pre", "textarea", "script", "style"}

// StripWhitespace coalesces adjacent text events, removes spaces and tabs
// before line breaks, and collapses runs of line breaks into one.  Text
// inside elements whose local name is listed in preserve, or inside an element
// with xml:space="preserve", is coalesced but otherwise left alone.
func StripWhitespace(events iter.Seq[Event], preserve ...string) iter.Seq[Event] {
	var keep = make(map[string]bool, len(preserve))
	for _, name := range preserve {
		keep[name] = true
	}
	var xmlSpace = QName{XMLNamespace, "space"}

	return func(yield func(Event) bool) {
		var (
			buf       strings.Builder
			bufPos    Pos
			buffered  bool
			preserved []bool // per open element
			depth     int    // number of preserving elements open
		)
		var flush = func() bool {
			if !buffered {
				return true
			}
			var text = buf.String()
			buf.Reset()
			buffered = false
			if depth == 0 {
				text = blankLines.ReplaceAllString(trailingSpace.ReplaceAllString(text, "\n"), "\n")
			}
			return yield(TextEvent(text, bufPos))
		}

		for ev := range events {
			if ev.Kind == Text {
				if !buffered {
					bufPos = ev.Pos
					buffered = true
				}
				buf.WriteString(ev.Text)
				continue
			}
			if !flush() {
				return
			}
			switch ev.Kind {
			case Start:
				var space, _ = ev.Attrs.Get(xmlSpace)
				var p = keep[ev.Name.Local] || space == "preserve"
				preserved = append(preserved, p)
				if p {
					depth++
				}
			case End:
				if n := len(preserved); n > 0 {
					if preserved[n-1] {
						depth--
					}
					preserved = preserved[:n-1]
				}
			}
			if !yield(ev) {
				return
			}
		}
		flush()
	}
}
