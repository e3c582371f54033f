package template

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/davidfraser/genshi/data"
	"github.com/davidfraser/genshi/eval"
)

// ErrEmptyStack is returned by Pop when only the root frame is left.
var ErrEmptyStack = errors.New("template: pop from empty context stack")

// KeyNotFoundError is returned by Item for names that no frame binds.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("template: %q not defined", e.Key)
}

// Item is one binding of the effective view of a Context.
type Item struct {
	Key   string
	Value interface{}
}

// Context is the variable scope of a render: a stack of frames over the root
// frame holding the caller's data.  Lookups scan the pushed frames innermost
// first, then the functions defined by the template, then the root.
//
// A Context also carries the match rules and choose blocks that are active
// during the render.  It must not be shared between renders.
type Context struct {
	root    map[string]interface{}
	frames  []map[string]interface{} // innermost last
	defs    map[string]eval.Func
	matches []*matchRule
	choices []*choice
	seq     int // sequence number of the next match rule
}

// choice is the state of an active choose block.
type choice struct {
	matched bool
	hasTest bool
	value   interface{}
}

// NewContext returns a Context whose root frame is the given data.
func NewContext(data map[string]interface{}) *Context {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Context{root: data, defs: make(map[string]eval.Func)}
}

// Push adds a frame on top of the stack.
func (c *Context) Push(frame map[string]interface{}) {
	if frame == nil {
		frame = make(map[string]interface{})
	}
	c.frames = append(c.frames, frame)
}

// Pop removes and returns the innermost frame.  The root frame is never
// popped.
func (c *Context) Pop() (map[string]interface{}, error) {
	if len(c.frames) == 0 {
		return nil, ErrEmptyStack
	}
	var frame = c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return frame, nil
}

// Len returns the number of frames, including the root.
func (c *Context) Len() int {
	return len(c.frames) + 1
}

// Lookup returns the innermost binding of key.
func (c *Context) Lookup(key string) (interface{}, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][key]; ok {
			return v, true
		}
	}
	if fn, ok := c.defs[key]; ok {
		return fn, true
	}
	v, ok := c.root[key]
	return v, ok
}

// Get returns the innermost binding of key, or def if there is none.
func (c *Context) Get(key string, def interface{}) interface{} {
	if v, ok := c.Lookup(key); ok {
		return v
	}
	return def
}

// Item returns the innermost binding of key, or a *KeyNotFoundError.
func (c *Context) Item(key string) (interface{}, error) {
	if v, ok := c.Lookup(key); ok {
		return v, nil
	}
	return nil, &KeyNotFoundError{key}
}

// Has reports whether any frame binds key.
func (c *Context) Has(key string) bool {
	var _, ok = c.Lookup(key)
	return ok
}

// Set binds key in the innermost frame, shadowing outer bindings.
func (c *Context) Set(key string, value interface{}) {
	c.top()[key] = value
}

// Delete removes key from every frame that binds it.
func (c *Context) Delete(key string) {
	for _, frame := range c.frames {
		delete(frame, key)
	}
	delete(c.defs, key)
	delete(c.root, key)
}

func (c *Context) top() map[string]interface{} {
	if len(c.frames) == 0 {
		return c.root
	}
	return c.frames[len(c.frames)-1]
}

// Define registers a template function for the rest of the render.
func (c *Context) Define(name string, fn eval.Func) {
	c.defs[name] = fn
}

// Definition returns the template function with the given name.
func (c *Context) Definition(name string) (eval.Func, bool) {
	var fn, ok = c.defs[name]
	return fn, ok
}

// Items returns the effective bindings, each name once with its innermost
// value, innermost frames first.
func (c *Context) Items() []Item {
	var items []Item
	var seen = make(map[string]bool)
	var add = func(frame map[string]interface{}) {
		for _, key := range slices.Sorted(maps.Keys(frame)) {
			if !seen[key] {
				seen[key] = true
				items = append(items, Item{key, frame[key]})
			}
		}
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		add(c.frames[i])
	}
	for _, key := range slices.Sorted(maps.Keys(c.defs)) {
		if !seen[key] {
			seen[key] = true
			items = append(items, Item{key, c.defs[key]})
		}
	}
	add(c.root)
	return items
}

// Keys returns the names of Items.
func (c *Context) Keys() []string {
	var items = c.Items()
	var keys = make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	return keys
}

// Vars returns the effective bindings as a new map.
func (c *Context) Vars() map[string]interface{} {
	var vars = make(map[string]interface{}, len(c.root)+len(c.defs))
	maps.Copy(vars, c.root)
	for name, fn := range c.defs {
		vars[name] = fn
	}
	for _, frame := range c.frames {
		maps.Copy(vars, frame)
	}
	return vars
}

// Copy returns an independent Context with the same contents.
func (c *Context) Copy() *Context {
	var cp = &Context{
		root:    maps.Clone(c.root),
		frames:  make([]map[string]interface{}, len(c.frames)),
		defs:    maps.Clone(c.defs),
		matches: slices.Clone(c.matches),
		choices: make([]*choice, len(c.choices)),
		seq:     c.seq,
	}
	for i, frame := range c.frames {
		cp.frames[i] = maps.Clone(frame)
	}
	for i, ch := range c.choices {
		var dup = *ch
		cp.choices[i] = &dup
	}
	return cp
}

func (c *Context) String() string {
	var parts []string
	for _, item := range c.Items() {
		parts = append(parts, fmt.Sprintf("%s: %s", data.Repr(item.Key), data.Repr(item.Value)))
	}
	return "Context({" + strings.Join(parts, ", ") + "})"
}

func (c *Context) pushChoice(ch *choice) {
	c.choices = append(c.choices, ch)
}

func (c *Context) popChoice() {
	c.choices = c.choices[:len(c.choices)-1]
}

func (c *Context) currentChoice() *choice {
	if len(c.choices) == 0 {
		return nil
	}
	return c.choices[len(c.choices)-1]
}

// addMatch registers a match rule and assigns its sequence number.
func (c *Context) addMatch(rule *matchRule) {
	rule.seq = c.seq
	c.seq++
	c.matches = append(c.matches, rule)
}

func (c *Context) removeMatch(rule *matchRule) {
	c.matches = slices.DeleteFunc(c.matches, func(m *matchRule) bool { return m == rule })
}

// expireMatches removes the rules registered at or after the given sequence
// number and returns how many were removed.
func (c *Context) expireMatches(since int) int {
	var n = len(c.matches)
	c.matches = slices.DeleteFunc(c.matches, func(m *matchRule) bool { return m.seq >= since })
	return n - len(c.matches)
}
