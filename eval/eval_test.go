package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidfraser/genshi/data"
)

func TestParseTarget(t *testing.T) {
	var tests = []struct {
		text     string
		expected string
	}{
		{"x", "x"},
		{" x ", "x"},
		{"k, v", "(k, v)"},
		{"(k, v)", "(k, v)"},
		{"(a, (b, c))", "(a, (b, c))"},
		{"[a, b]", "(a, b)"},
		{"(a)", "a"},
		{"(a,)", "(a)"},
		{"[a]", "(a)"},
		{"a, b,", "(a, b)"},
	}
	for _, test := range tests {
		var target, err = ParseTarget(test.text)
		if assert.NoError(t, err, test.text) {
			assert.Equal(t, test.expected, target.String(), test.text)
		}
	}

	for _, text := range []string{"", "1x", "a.b", "f(x)", "(a, b", "a, 'b'", "a + b"} {
		var _, err = ParseTarget(text)
		var serr *SyntaxError
		assert.True(t, errors.As(err, &serr), "%q: %v", text, err)
	}
}

func TestAssign(t *testing.T) {
	var target, err = ParseTarget("(a, (b, c)), d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, target.Names())

	var scope = map[string]any{}
	require.NoError(t, target.Assign(scope, data.List{data.List{1, []int{2, 3}}, "x"}))
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3, "d": "x"}, scope)

	assert.Error(t, target.Assign(scope, data.List{1, 2, 3}))
	assert.Error(t, target.Assign(scope, data.List{data.List{1, 2}}))
	var notIterable *data.NotIterableError
	assert.True(t, errors.As(target.Assign(scope, 42), &notIterable))
}

func TestParseFor(t *testing.T) {
	var target, src, err = ParseFor("(k, v) in items({'a in b': 1})")
	require.NoError(t, err)
	assert.Equal(t, "(k, v)", target.String())
	assert.Equal(t, "items({'a in b': 1})", src)

	target, src, err = ParseFor("item in items")
	require.NoError(t, err)
	assert.Equal(t, "item", target.Name)
	assert.Equal(t, "items", src)

	for _, text := range []string{"item in\n  items", "item\tin\titems", "item  in  items"} {
		target, src, err = ParseFor(text)
		if assert.NoError(t, err, text) {
			assert.Equal(t, "item", target.Name, text)
			assert.Equal(t, "items", src, text)
		}
	}

	target, src, err = ParseFor("x, info in index")
	require.NoError(t, err)
	assert.Equal(t, "(x, info)", target.String())
	assert.Equal(t, "index", src)

	for _, text := range []string{"", "item", "item in ", "item in\n", "'a in b'", "item inside"} {
		_, _, err = ParseFor(text)
		assert.Error(t, err, text)
	}
}

func TestParseStatements(t *testing.T) {
	var stmts, err = ParseStatements("foo = 'bar'; foo = replace(foo, 'r', 'z');")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "foo", stmts[0].Targets[0].Name)
	assert.Equal(t, "'bar'", stmts[0].Expr)
	assert.Equal(t, "replace(foo, 'r', 'z')", stmts[1].Expr)
	assert.Equal(t, 19, stmts[1].Offset)

	stmts, err = ParseStatements("x = y = z = 1")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Len(t, stmts[0].Targets, 3)
	assert.Equal(t, "1", stmts[0].Expr)

	stmts, err = ParseStatements("a, b = pair; c = a == b; d = f(n=1); e = 's;=' ")
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Equal(t, []string{"a", "b"}, stmts[0].Targets[0].Names())
	assert.Equal(t, "a == b", stmts[1].Expr)
	assert.Equal(t, "f(n=1)", stmts[2].Expr)
	assert.Equal(t, "'s;='", stmts[3].Expr)

	for _, text := range []string{"", ";", "x", "x == 1", "x = ", "1 = x", "x = (1"} {
		_, err = ParseStatements(text)
		assert.Error(t, err, text)
	}
}

func TestParseSignature(t *testing.T) {
	var tests = []struct {
		text     string
		expected string
	}{
		{"echo", "echo()"},
		{"echo()", "echo()"},
		{"echo(greeting, name='world')", "echo(greeting, name='world')"},
		{"f(a, b=g(1, 2), *args, **kw)", "f(a, b=g(1, 2), *args, **kw)"},
		{"f(**kw)", "f(**kw)"},
		{" f ( a , ) ", "f(a)"},
	}
	for _, test := range tests {
		var sig, err = ParseSignature(test.text)
		if assert.NoError(t, err, test.text) {
			assert.Equal(t, test.expected, sig.String())
		}
	}

	var sig, err = ParseSignature("f(a, b=1, *rest, **kw)")
	require.NoError(t, err)
	assert.Equal(t, []Param{{"a", ""}, {"b", "1"}}, sig.Params)
	assert.Equal(t, "rest", sig.Varargs)
	assert.Equal(t, "kw", sig.Varkw)

	for _, text := range []string{"", "1f", "f(", "f(a", "f(a, a)", "f(**kw, a)", "f(*a, b)", "f(a=)", "f(1)", "f(a,,b)"} {
		_, err = ParseSignature(text)
		assert.Error(t, err, text)
	}
}

func TestSplitKwargs(t *testing.T) {
	var args, kw = SplitKwargs([]any{1, Kwargs{"a": 2}})
	assert.Equal(t, []any{1}, args)
	assert.Equal(t, Kwargs{"a": 2}, kw)

	args, kw = SplitKwargs([]any{1, 2})
	assert.Equal(t, []any{1, 2}, args)
	assert.Nil(t, kw)
}

func TestBuiltins(t *testing.T) {
	var call = func(name string, args ...any) any {
		var result, err = Builtins[name](args...)
		require.NoError(t, err, name)
		return result
	}
	assert.Equal(t, data.List{data.List{"a", 1}, data.List{"b", 2}}, call("items", map[string]any{"b": 2, "a": 1}))
	assert.Equal(t, data.List{data.List{0, "x"}, data.List{1, "y"}}, call("enumerate", data.List{"x", "y"}))
	assert.Equal(t, "Hello_0", call("capitalize", "hello_0"))
	assert.Equal(t, "Hello world", call("capitalize", "hELLO WORLD"))
	assert.Equal(t, "", call("capitalize", ""))
	assert.Equal(t, "Hello World", call("title", "hello world"))
	assert.Equal(t, Kwargs{"name": "you"}, call("kwargs", map[string]any{"name": "you"}))
	assert.Equal(t, Kwargs{}, call("kwargs"))
	assert.Equal(t, "'x'", call("repr", "x"))

	var _, err = Builtins["items"](1)
	assert.Error(t, err)
	_, err = Builtins["capitalize"]()
	assert.Error(t, err)
}
