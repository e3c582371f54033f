package eval

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/davidfraser/genshi/data"
)

// Builtins are the functions templates provide to every expression.
var Builtins = map[string]Func{
	"items":      builtinItems,
	"enumerate":  builtinEnumerate,
	"capitalize": builtinCapitalize,
	"title":      builtinTitle,
	"kwargs":     builtinKwargs,
	"repr":       builtinRepr,
}

// WithBuiltins adds the Builtins to env, except where env binds the name
// already, and returns env.
func WithBuiltins(env map[string]any) map[string]any {
	for name, fn := range Builtins {
		if _, ok := env[name]; !ok {
			env[name] = fn
		}
	}
	return env
}

func checkArgs(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s() takes %d argument(s), %d given", name, n, len(args))
	}
	return nil
}

// items(mapping) returns the [key, value] pairs of a mapping, sorted by key.
func builtinItems(args ...any) (any, error) {
	if err := checkArgs("items", args, 1); err != nil {
		return nil, err
	}
	return data.Items(args[0])
}

// enumerate(seq) returns [index, item] pairs.
func builtinEnumerate(args ...any) (any, error) {
	if err := checkArgs("enumerate", args, 1); err != nil {
		return nil, err
	}
	return data.Enumerate(args[0])
}

// capitalize(s) upper-cases the first character and lower-cases the rest.
func builtinCapitalize(args ...any) (any, error) {
	if err := checkArgs("capitalize", args, 1); err != nil {
		return nil, err
	}
	var s = data.String(args[0])
	if s == "" {
		return s, nil
	}
	var _, size = utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + cases.Lower(language.Und).String(s[size:]), nil
}

// title(s) capitalizes every word.
func builtinTitle(args ...any) (any, error) {
	if err := checkArgs("title", args, 1); err != nil {
		return nil, err
	}
	return cases.Title(language.Und).String(data.String(args[0])), nil
}

// kwargs(mapping) marks a mapping as the keyword arguments of a call, e.g.
// greet('Hi', kwargs({'name': 'you'})).
func builtinKwargs(args ...any) (any, error) {
	if len(args) == 0 {
		return Kwargs{}, nil
	}
	if err := checkArgs("kwargs", args, 1); err != nil {
		return nil, err
	}
	switch m := args[0].(type) {
	case Kwargs:
		return m, nil
	case map[string]any:
		return Kwargs(m), nil
	}
	var items, err = data.Items(args[0])
	if err != nil {
		return nil, err
	}
	var kw = Kwargs{}
	for _, item := range items {
		var pair = item.(data.List)
		kw[data.String(pair[0])] = pair[1]
	}
	return kw, nil
}

// repr(v) returns the source representation of v.
func builtinRepr(args ...any) (any, error) {
	if err := checkArgs("repr", args, 1); err != nil {
		return nil, err
	}
	return data.Repr(args[0]), nil
}
