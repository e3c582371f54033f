// Package data defines the value semantics templates apply to plain Go
// values: truthiness, equality, display conversion and iteration.
package data

import (
	"math"
	"reflect"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"
)

// Map and List are the shapes New produces for structured data.
type (
	Map  = map[string]interface{}
	List = []interface{}
)

// Truthy returns true unless v is nil, false, a zero or NaN number, an empty
// string or an empty collection.
func Truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	}

	var rv = reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Truthy(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0 && !math.IsNaN(rv.Float())
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Func:
		return !rv.IsNil()
	}
	return true
}

// IsNumber reports whether v is one of Go's integer or floating point kinds.
func IsNumber(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Equal returns true if the two values are equal.  Specifically, if:
// - They are both numbers with the same numeric value (ints and floats compare)
// - They are comparable and ==
// - (Lists, Maps) They have deeply equal contents
func Equal(a, b interface{}) bool {
	if IsNumber(a) && IsNumber(b) {
		var ra, rb = reflect.ValueOf(a), reflect.ValueOf(b)
		if isInt(ra) && isInt(rb) {
			return cast.ToInt64(a) == cast.ToInt64(b)
		}
		return cast.ToFloat64(a) == cast.ToFloat64(b)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	var ta, tb = reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return false
	}
	return true
}

// NumberConv converts a number to its display text.
type NumberConv func(number interface{}) string

// DefaultNumberConv formats numbers in base 10, floats in the shortest
// representation that round-trips, without exponents.
func DefaultNumberConv(number interface{}) string {
	var rv = reflect.ValueOf(number)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return cast.ToString(number)
}

// GroupedNumberConv formats numbers with thousands separators, e.g. 1,234,567.
func GroupedNumberConv(number interface{}) string {
	if isInt(reflect.ValueOf(number)) {
		return humanize.Comma(cast.ToInt64(number))
	}
	return humanize.Commaf(cast.ToFloat64(number))
}

// String formats v for display in a template, using DefaultNumberConv for
// numbers.
func String(v interface{}) string {
	return Format(v, DefaultNumberConv)
}

// Format formats v for display in a template.  Nil formats as the empty string
// and numbers pass through conv.
func Format(v interface{}, conv NumberConv) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	if IsNumber(v) {
		if conv == nil {
			conv = DefaultNumberConv
		}
		return conv(v)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return Repr(v)
}
