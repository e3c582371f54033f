// Package template implements the template engine: a template is parsed into
// a stream of markup events, its directives and expressions are compiled
// once, and each call to Generate renders it against new data as a lazy
// event stream.
//
// Directives are attributes or elements in the Namespace namespace:
//
//	<ul xmlns:py="http://genshi.edgewall.org/">
//	  <li py:for="item in items" py:if="item.visible">${item.title}</li>
//	</ul>
//
// Text templates use "#name value" ... "#end" lines instead.
package template

import (
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/davidfraser/genshi/data"
	"github.com/davidfraser/genshi/eval"
	"github.com/davidfraser/genshi/eval/exprlang"
	"github.com/davidfraser/genshi/markup"
)

// Options configure how templates are compiled and rendered.  The zero value
// is usable.
type Options struct {
	// Compiler compiles the expressions of the template.  Defaults to the
	// exprlang dialect.
	Compiler eval.Compiler

	// NumberConv formats numbers produced by expressions.  Defaults to
	// data.DefaultNumberConv.
	NumberConv data.NumberConv

	// Logger, if set, receives notes about match rules during renders.
	Logger *log.Logger

	// StructOptions controls how struct data is converted.  Defaults to
	// data.DefaultStructOptions.
	StructOptions *data.StructOptions

	// Globals are visible to every render, below the render data.
	Globals map[string]interface{}
}

func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Compiler == nil {
		opts.Compiler = exprlang.New()
	}
	if opts.NumberConv == nil {
		opts.NumberConv = data.DefaultNumberConv
	}
	if opts.StructOptions == nil {
		opts.StructOptions = &data.DefaultStructOptions
	}
	return opts
}

// Template is a prepared template.  It is safe for concurrent use.
type Template struct {
	Filename string
	events   []markup.Event
	opts     Options
	method   markup.Method // default output method
}

// ParseXML parses and prepares a markup template written as XML.
func ParseXML(filename string, r io.Reader, opts *Options) (*Template, error) {
	var events, err = markup.ParseXML(r, filename)
	if err != nil {
		return nil, err
	}
	return newMarkup(filename, events, opts, markup.XML)
}

// ParseHTML parses and prepares a markup template written as HTML.
func ParseHTML(filename string, r io.Reader, opts *Options) (*Template, error) {
	var events, err = markup.ParseHTML(r, filename)
	if err != nil {
		return nil, err
	}
	return newMarkup(filename, events, opts, markup.HTML)
}

// ParseText parses and prepares a text template.
func ParseText(filename string, r io.Reader, opts *Options) (*Template, error) {
	var src, err = io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var t = &Template{Filename: filename, opts: opts.withDefaults(), method: markup.TEXT}
	var p = &preparer{compiler: t.opts.Compiler}
	if t.events, err = p.prepareText(string(src), filename); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseString parses and prepares an XML markup template from a string.
func ParseString(filename, src string, opts *Options) (*Template, error) {
	return ParseXML(filename, strings.NewReader(src), opts)
}

func newMarkup(filename string, events []markup.Event, opts *Options, method markup.Method) (*Template, error) {
	var t = &Template{Filename: filename, opts: opts.withDefaults(), method: method}
	var p = &preparer{compiler: t.opts.Compiler}
	var err error
	if t.events, err = p.prepare(events); err != nil {
		return nil, err
	}
	return t, nil
}

// Method returns the output method the template renders with by default.
func (t *Template) Method() markup.Method {
	return t.method
}

// Generate renders the template against value, a map or a struct.  The
// render runs as the returned Stream is consumed.
func (t *Template) Generate(value interface{}) *Stream {
	return t.generate(value, t.opts.Globals)
}

func (t *Template) generate(value interface{}, globals map[string]interface{}) *Stream {
	var root, err = t.rootData(value)
	if err != nil {
		return &Stream{err: err, method: t.method}
	}
	var r = &render{
		tmpl:       t,
		ctxt:       NewContext(root),
		globals:    globals,
		numberConv: t.opts.NumberConv,
	}
	var events = r.match(r.flatten(markup.Stream(t.events), nil), 0, math.MaxInt, []*scope{{}})
	return &Stream{seq: events, method: t.method}
}

// rootData converts the render data into the root frame of the Context.
func (t *Template) rootData(value interface{}) (map[string]interface{}, error) {
	if value == nil {
		return make(map[string]interface{}), nil
	}
	switch m := data.NewWith(*t.opts.StructOptions, value).(type) {
	case data.Map:
		return m, nil
	case nil:
		return make(map[string]interface{}), nil
	}
	return nil, fmt.Errorf("template: data must be a map or a struct, got %T", value)
}
