package template

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/davidfraser/genshi/markup"
)

// Registry holds the templates of an application by name.  It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	globals   map[string]interface{}
}

// Add registers t under name, replacing any template of the same name.
func (r *Registry) Add(name string, t *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.templates == nil {
		r.templates = make(map[string]*Template)
	}
	r.templates[name] = t
}

// Template returns the template registered under name.
func (r *Registry) Template(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var t, ok = r.templates[name]
	return t, ok
}

// Names returns the names of the registered templates, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.templates))
}

// SetGlobals sets variables visible to every render of the registry's
// templates.  They take precedence over the globals of a template's Options.
func (r *Registry) SetGlobals(globals map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals = maps.Clone(globals)
}

// Globals returns a copy of the registry's globals.
func (r *Registry) Globals() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.globals)
}

// Generate renders the named template against data.
func (r *Registry) Generate(name string, data interface{}) (*Stream, error) {
	r.mu.RLock()
	var t, ok = r.templates[name]
	var globals = r.globals
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	if len(t.opts.Globals) > 0 {
		var merged = maps.Clone(t.opts.Globals)
		maps.Copy(merged, globals)
		globals = merged
	}
	return t.generate(data, globals), nil
}

// Render renders the named template against data and writes it to w in the
// given output format.
func (r *Registry) Render(w io.Writer, name string, data interface{}, method markup.Method) error {
	var stream, err = r.Generate(name, data)
	if err != nil {
		return err
	}
	return stream.Serialize(w, method)
}

// Replace swaps in the templates and globals of other, as one update.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	var templates, globals = maps.Clone(other.templates), maps.Clone(other.globals)
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates, r.globals = templates, globals
}
