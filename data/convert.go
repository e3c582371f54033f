package data

import (
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cast"
)

var timeType = reflect.TypeOf(time.Time{})

// Marshaler is implemented by values that convert themselves.  The result of
// MarshalValue is used as-is.
type Marshaler interface {
	MarshalValue() interface{}
}

// New converts the given data into template data, using DefaultStructOptions
// for structs.
func New(value interface{}) interface{} {
	return NewWith(DefaultStructOptions, value)
}

// NewWith converts the given data into template data, using the provided
// StructOptions for any structs encountered.  Structs become Maps, slices
// become Lists and maps become Maps keyed by the string form of their keys.
// Scalars, functions and channels are returned unchanged.
func NewWith(convert StructOptions, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if m, ok := value.(Marshaler); ok {
		return m.MarshalValue()
	}

	// drill through pointers and interfaces to the underlying type
	var v = reflect.ValueOf(value)
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
		if m, ok := v.Interface().(Marshaler); ok {
			return m.MarshalValue()
		}
	}

	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(convert.timeFormat())
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		var list = make(List, v.Len())
		for i := range list {
			list[i] = NewWith(convert, v.Index(i).Interface())
		}
		return list
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		var m = make(Map, v.Len())
		for _, key := range v.MapKeys() {
			m[cast.ToString(key.Interface())] = NewWith(convert, v.MapIndex(key).Interface())
		}
		return m
	case reflect.Struct:
		return convert.Data(v.Interface())
	}
	return v.Interface()
}

// DefaultStructOptions lower-cases the first letter of field names and formats
// times as RFC 3339.
var DefaultStructOptions = StructOptions{
	LowerCamel: true,
	TimeFormat: time.RFC3339,
}

// StructOptions provides flexibility in conversion of structs to Maps.
type StructOptions struct {
	LowerCamel bool   // if true, convert field names to lowerCamel.
	TimeFormat string // format string for time.Time. (if empty, use ISO-8601)
}

func (c StructOptions) timeFormat() string {
	if c.TimeFormat == "" {
		return time.RFC3339
	}
	return c.TimeFormat
}

// Data converts the exported fields of obj into a Map.
func (c StructOptions) Data(obj interface{}) Map {
	var m = make(Map)
	var v = reflect.ValueOf(obj)
	var valType = v.Type()
	for i := 0; i < valType.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		var key = valType.Field(i).Name
		if c.LowerCamel {
			var firstRune, size = utf8.DecodeRuneInString(key)
			key = string(unicode.ToLower(firstRune)) + key[size:]
		}
		m[key] = NewWith(c, v.Field(i).Interface())
	}
	return m
}
