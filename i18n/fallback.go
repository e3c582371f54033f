package i18n

import (
	"golang.org/x/text/language"
)

// fallbacks returns the locales that can stand in for tag, most specific
// first: language_script_region, language_script, language.
func fallbacks(tag language.Tag) []string {
	var locales []string
	var add = func(parts ...interface{}) {
		if t, err := language.Compose(parts...); err == nil && t != language.Und {
			locales = append(locales, t.String())
		}
	}
	// Raw reports an unspecified region as ZZ and an unspecified script as Zzzz.
	var lang, script, region = tag.Raw()
	if region.String() != "ZZ" {
		add(lang, script, region)
	}
	if script.String() != "Zzzz" {
		add(lang, script)
	}
	add(lang)
	return locales
}
