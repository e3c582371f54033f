package i18n

import (
	"iter"
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/davidfraser/genshi/eval"
	"github.com/davidfraser/genshi/markup"
	"github.com/davidfraser/genshi/template"
)

// DefaultIgnoreTags are the elements whose text is never translated.
var DefaultIgnoreTags = []string{"script", "style"}

// DefaultIncludeAttrs are the attributes whose values are translated.
var DefaultIncludeAttrs = []string{"abbr", "alt", "label", "prompt", "standby", "summary", "title"}

// Translator translates the text of rendered templates using a catalog.
type Translator struct {
	Catalog      *Catalog
	IgnoreTags   map[string]bool
	IncludeAttrs map[string]bool
}

// NewTranslator returns a Translator for the catalog with the default tag
// and attribute sets.  A nil catalog leaves every message untranslated.
func NewTranslator(c *Catalog) *Translator {
	var t = &Translator{
		Catalog:      c,
		IgnoreTags:   make(map[string]bool),
		IncludeAttrs: make(map[string]bool),
	}
	for _, tag := range DefaultIgnoreTags {
		t.IgnoreTags[tag] = true
	}
	for _, attr := range DefaultIncludeAttrs {
		t.IncludeAttrs[attr] = true
	}
	return t
}

// Filter returns a stream filter that replaces text and translatable
// attribute values by their translations.  Leading and trailing whitespace is
// kept as in the source; only the text between is looked up.
func (t *Translator) Filter() template.Filter {
	return func(events iter.Seq[markup.Event]) iter.Seq[markup.Event] {
		return func(yield func(markup.Event) bool) {
			var ignored = 0
			for ev := range events {
				switch ev.Kind {
				case markup.Start:
					if ignored > 0 || t.IgnoreTags[ev.Name.Local] {
						ignored++
					} else {
						ev.Attrs = t.attrs(ev.Attrs)
					}
				case markup.End:
					if ignored > 0 {
						ignored--
					}
				case markup.Text:
					if ignored == 0 {
						ev.Text = t.text(ev.Text)
					}
				}
				if !yield(ev) {
					return
				}
			}
		}
	}
}

func (t *Translator) attrs(attrs markup.Attrs) markup.Attrs {
	var result markup.Attrs
	for i, attr := range attrs {
		if attr.Name.Space != "" || !t.IncludeAttrs[attr.Name.Local] {
			continue
		}
		var translated = t.text(attr.Value)
		if translated == attr.Value {
			continue
		}
		if result == nil {
			result = append(markup.Attrs(nil), attrs...)
		}
		result[i].Value = translated
	}
	if result == nil {
		return attrs
	}
	return result
}

// text translates s, keeping its surrounding whitespace.
func (t *Translator) text(s string) string {
	var msgid = strings.TrimFunc(s, unicode.IsSpace)
	if msgid == "" {
		return s
	}
	var start = strings.Index(s, msgid)
	return s[:start] + t.Catalog.Gettext(msgid) + s[start+len(msgid):]
}

// Globals returns the translation functions for use in template
// expressions: _ and gettext take a message, ngettext a singular, a plural
// and a count, and pgettext a context and a message.
func (t *Translator) Globals() map[string]interface{} {
	var gettext eval.Func = func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errArgs("gettext", 1, len(args))
		}
		return t.Catalog.Gettext(cast.ToString(args[0])), nil
	}
	return map[string]interface{}{
		"_":       gettext,
		"gettext": gettext,
		"ngettext": eval.Func(func(args ...interface{}) (interface{}, error) {
			if len(args) != 3 {
				return nil, errArgs("ngettext", 3, len(args))
			}
			var n, err = cast.ToIntE(args[2])
			if err != nil {
				return nil, err
			}
			return t.Catalog.Ngettext(cast.ToString(args[0]), cast.ToString(args[1]), n), nil
		}),
		"pgettext": eval.Func(func(args ...interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, errArgs("pgettext", 2, len(args))
			}
			return t.Catalog.Pgettext(cast.ToString(args[0]), cast.ToString(args[1])), nil
		}),
	}
}
