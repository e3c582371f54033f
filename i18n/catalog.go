// Package i18n translates rendered templates using gettext PO catalogs, and
// extracts the translatable messages of templates into PO templates.
package i18n

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/gettext/po"
	"golang.org/x/text/language"
)

// Provider provides access to message catalogs by locale.
type Provider interface {
	// Catalog returns the messages for the given locale, which is in the
	// form [language_territory]. If no catalog is found for the locale or any
	// of its fallbacks, nil is returned, which causes all messages to use the
	// source text.
	Catalog(locale string) *Catalog
}

// FileOpener defines an abstraction for opening a po file given a locale
type FileOpener interface {
	// Open returns ReadCloser for the po file indicated by locale. It returns
	// nil if the file does not exist
	Open(locale string) (io.ReadCloser, error)
}

type provider struct {
	catalogs map[string]*Catalog
}

// Load returns a Provider that takes its translations by passing in the
// specified locales to the given FileOpener.
//
// Supports fallbacks for when a given locale does not exist, as long as the
// fallback files are in canonical form.
func Load(opener FileOpener, locales []string) (Provider, error) {
	var prov = provider{make(map[string]*Catalog)}
	for _, locale := range locales {
		r, err := opener.Open(locale)
		if err != nil {
			return nil, err
		}
		if r == nil {
			tag, err := language.Parse(locale)
			if err != nil {
				return nil, err
			}
			for _, fb := range fallbacks(tag) {
				if r, err = opener.Open(fb); err != nil {
					return nil, err
				}
				if r != nil {
					break
				}
			}
			if r == nil {
				continue
			}
		}

		pofile, err := po.Parse(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("i18n: %s: %v", locale, err)
		}
		c, err := NewCatalog(locale, pofile)
		if err != nil {
			return nil, err
		}
		prov.catalogs[locale] = c
	}
	return prov, nil
}

// fsFileOpener is a FileOpener based on the filesystem and rooted at Dirname
type fsFileOpener struct {
	Dirname string
}

func (o fsFileOpener) Open(locale string) (io.ReadCloser, error) {
	switch f, err := os.Open(filepath.Join(o.Dirname, locale+".po")); {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return f, nil
	}
}

// Dir returns a Provider that takes translations from the given path.
// For example, if dir is "/usr/local/msgs", po files should be of the form:
//
//	/usr/local/msgs/<lang>.po
//	/usr/local/msgs/<lang>_<territory>.po
func Dir(dirname string) (Provider, error) {
	var entries, err = os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	var locales []string
	for _, entry := range entries {
		var name = entry.Name()
		if !entry.IsDir() && strings.HasSuffix(name, ".po") {
			locales = append(locales, strings.TrimSuffix(name, ".po"))
		}
	}
	return Load(fsFileOpener{dirname}, locales)
}

func (p provider) Catalog(locale string) *Catalog {
	if c, ok := p.catalogs[locale]; ok {
		return c
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil
	}
	for _, fb := range fallbacks(tag) {
		if c, ok := p.catalogs[fb]; ok {
			return c
		}
	}
	return nil
}

// Catalog is the set of translated messages of one locale.  A nil Catalog
// translates every message to itself.
type Catalog struct {
	locale    string
	messages  map[string][]string
	pluralize po.PluralSelector
}

// NewCatalog builds a catalog from a parsed PO file.  The plural rule is
// taken from the file's Plural-Forms header, or else from the locale.
func NewCatalog(locale string, file po.File) (*Catalog, error) {
	var pluralize = file.Pluralize
	if pluralize == nil {
		pluralize = po.PluralSelectorForLanguage(locale)
	}
	if pluralize == nil {
		return nil, fmt.Errorf("i18n: %s: Plural-Forms must be specified", locale)
	}

	var msgs = make(map[string][]string)
	for _, msg := range file.Messages {
		if msg.Id == "" || len(msg.Str) == 0 || msg.Str[0] == "" {
			continue
		}
		msgs[key(msg.Ctxt, msg.Id)] = msg.Str
	}
	return &Catalog{locale, msgs, pluralize}, nil
}

// key is the lookup key of a message, combining its context and id the way
// compiled gettext catalogs do.
func key(ctxt, msgid string) string {
	if ctxt == "" {
		return msgid
	}
	return ctxt + "\x04" + msgid
}

// Locale returns the locale of the catalog.
func (c *Catalog) Locale() string {
	if c == nil {
		return ""
	}
	return c.locale
}

// Gettext returns the translation of msgid.
func (c *Catalog) Gettext(msgid string) string {
	return c.Pgettext("", msgid)
}

// Pgettext returns the translation of msgid in the given message context.
func (c *Catalog) Pgettext(ctxt, msgid string) string {
	if c == nil {
		return msgid
	}
	if strs, ok := c.messages[key(ctxt, msgid)]; ok {
		return strs[0]
	}
	return msgid
}

// Ngettext returns the translation of the singular or plural form of a
// message, as selected by n.
func (c *Catalog) Ngettext(singular, plural string, n int) string {
	var source = plural
	if n == 1 {
		source = singular
	}
	if c == nil {
		return source
	}
	var strs, ok = c.messages[singular]
	if !ok {
		return source
	}
	var i = c.pluralize(n)
	if i < 0 || i >= len(strs) || strs[i] == "" {
		return source
	}
	return strs[i]
}
