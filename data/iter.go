package data

import (
	"fmt"
	"iter"
	"reflect"
)

// NotIterableError is returned when a value that is not a collection is used
// where a sequence is required.
type NotIterableError struct {
	Value interface{}
}

func (e *NotIterableError) Error() string {
	return fmt.Sprintf("%T object is not iterable", e.Value)
}

// Iterate returns a sequence over the items of v.  Lists, arrays and
// sequences yield their elements, maps yield their keys in sorted order,
// strings yield one-character strings and channels yield received values until
// closed.  A nil value yields nothing.
func Iterate(v interface{}) (iter.Seq[interface{}], error) {
	switch v := v.(type) {
	case nil:
		return func(func(interface{}) bool) {}, nil
	case []interface{}:
		return func(yield func(interface{}) bool) {
			for _, item := range v {
				if !yield(item) {
					return
				}
			}
		}, nil
	case iter.Seq[interface{}]:
		return v, nil
	case func(func(interface{}) bool):
		return v, nil
	case iter.Seq2[interface{}, interface{}]:
		return pairs(v), nil
	case func(func(interface{}, interface{}) bool):
		return pairs(v), nil
	case string:
		return func(yield func(interface{}) bool) {
			for _, r := range v {
				if !yield(string(r)) {
					return
				}
			}
		}, nil
	}

	var rv = reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(interface{}) bool) {
			for i := 0; i < rv.Len(); i++ {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}, nil
	case reflect.Map:
		return func(yield func(interface{}) bool) {
			for _, key := range sortedKeys(rv) {
				if !yield(key.Interface()) {
					return
				}
			}
		}, nil
	case reflect.Chan:
		return func(yield func(interface{}) bool) {
			for {
				var item, ok = rv.Recv()
				if !ok || !yield(item.Interface()) {
					return
				}
			}
		}, nil
	case reflect.Ptr:
		if !rv.IsNil() {
			return Iterate(rv.Elem().Interface())
		}
	}
	return nil, &NotIterableError{v}
}

func pairs(seq iter.Seq2[interface{}, interface{}]) iter.Seq[interface{}] {
	return func(yield func(interface{}) bool) {
		for k, v := range seq {
			if !yield(List{k, v}) {
				return
			}
		}
	}
}

// Items returns the key/value pairs of a map, sorted by key, each pair a
// two-element List.  Structs are converted with DefaultStructOptions first.
func Items(v interface{}) (List, error) {
	var rv = reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return Items(New(v))
	}
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%T object has no items", v)
	}
	var items = make(List, 0, rv.Len())
	for _, key := range sortedKeys(rv) {
		items = append(items, List{key.Interface(), rv.MapIndex(key).Interface()})
	}
	return items, nil
}

// Enumerate returns (index, item) pairs for every item of v.
func Enumerate(v interface{}) (List, error) {
	var seq, err = Iterate(v)
	if err != nil {
		return nil, err
	}
	var result List
	var i = 0
	for item := range seq {
		result = append(result, List{i, item})
		i++
	}
	return result, nil
}
