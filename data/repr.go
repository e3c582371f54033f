package data

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var escapes = map[rune]rune{
	'\\': '\\',
	'\'': '\'',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	'\b': 'b',
	'\f': 'f',
}

// Repr returns a literal-like representation of v: strings are single quoted,
// lists are bracketed and maps are braced with sorted keys.
func Repr(v interface{}) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(string); ok {
		return quoteString(s)
	}
	var rv = reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var items = make([]string, rv.Len())
		for i := range items {
			items[i] = Repr(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ", ") + "]"
	case reflect.Map:
		var items = make([]string, 0, rv.Len())
		for _, key := range sortedKeys(rv) {
			items = append(items, Repr(key.Interface())+": "+Repr(rv.MapIndex(key).Interface()))
		}
		return "{" + strings.Join(items, ", ") + "}"
	}
	if IsNumber(v) {
		return DefaultNumberConv(v)
	}
	if b, ok := v.(bool); ok {
		if b {
			return "True"
		}
		return "False"
	}
	return fmt.Sprint(v)
}

// quoteString quotes the given string with single quotes.
func quoteString(s string) string {
	var q = make([]rune, 1, len(s)+10)
	q[0] = '\''
	for _, ch := range s {
		if seq, ok := escapes[ch]; ok {
			q = append(q, '\\', seq)
			continue
		}
		q = append(q, ch)
	}
	return string(append(q, '\''))
}

func sortedKeys(m reflect.Value) []reflect.Value {
	var keys = m.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
