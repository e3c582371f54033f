package data

import (
	"errors"
	"iter"
	"reflect"
	"testing"
)

func collect(t *testing.T, v interface{}) List {
	t.Helper()
	var seq, err = Iterate(v)
	if err != nil {
		t.Fatalf("%#v: unexpected error %v", v, err)
	}
	var result = List{}
	for item := range seq {
		result = append(result, item)
	}
	return result
}

func TestIterate(t *testing.T) {
	var ch = make(chan int, 2)
	ch <- 1
	ch <- 2
	close(ch)

	var seq iter.Seq[interface{}] = func(yield func(interface{}) bool) {
		_ = yield("x") && yield("y")
	}

	tests := []struct {
		input    interface{}
		expected List
	}{
		{nil, List{}},
		{List{1, 2}, List{1, 2}},
		{[]string{"a", "b"}, List{"a", "b"}},
		{[3]int{1, 2, 3}, List{1, 2, 3}},
		{Map{"b": 2, "a": 1}, List{"a", "b"}},
		{"hé", List{"h", "é"}},
		{ch, List{1, 2}},
		{seq, List{"x", "y"}},
		{&[]int{4}, List{4}},
	}

	for _, test := range tests {
		if actual := collect(t, test.input); !reflect.DeepEqual(test.expected, actual) {
			t.Errorf("%#v => %#v, expected %#v", test.input, actual, test.expected)
		}
	}
}

func TestIterateStopsEarly(t *testing.T) {
	var seq, _ = Iterate(List{1, 2, 3})
	var seen int
	for range seq {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("expected to stop after one item, saw %d", seen)
	}
}

func TestNotIterable(t *testing.T) {
	for _, v := range []interface{}{12, 1.5, true, struct{}{}} {
		var _, err = Iterate(v)
		var nie *NotIterableError
		if !errors.As(err, &nie) {
			t.Errorf("%#v: expected NotIterableError, got %v", v, err)
		}
	}
	var _, err = Iterate(12)
	if err.Error() != "int object is not iterable" {
		t.Errorf("unexpected message %q", err)
	}
}

func TestItems(t *testing.T) {
	var items, err = Items(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	var expected = List{List{"a", 1}, List{"b", 2}}
	if !reflect.DeepEqual(expected, items) {
		t.Errorf("expected %#v, got %#v", expected, items)
	}

	items, err = Items(struct{ Name string }{"x"})
	if err != nil || !reflect.DeepEqual(List{List{"name", "x"}}, items) {
		t.Errorf("struct items: %#v, %v", items, err)
	}

	if _, err = Items(List{}); err == nil {
		t.Errorf("expected error for list items")
	}
}

func TestEnumerate(t *testing.T) {
	var result, err = Enumerate([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	var expected = List{List{0, "a"}, List{1, "b"}}
	if !reflect.DeepEqual(expected, result) {
		t.Errorf("expected %#v, got %#v", expected, result)
	}
}
