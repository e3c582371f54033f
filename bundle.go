package genshi

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/davidfraser/genshi/template"
)

// Logger is used to print notifications and compile errors when using the
// "WatchFiles" feature.
var Logger = log.New(os.Stderr, "[genshi] ", 0)

// templateExts are the extensions of the files loaded by AddTemplateDir.
var templateExts = []string{".html", ".htm", ".xml", ".txt"}

type templateFile struct {
	name     string // registry name
	filename string // source file, empty for templates added as strings
	content  string
}

// Bundle is a collection of template sources and globals.  It acts as input
// for the template compiler.
type Bundle struct {
	files                 []templateFile
	globals               map[string]interface{}
	opts                  *template.Options
	err                   error
	watcher               *fsnotify.Watcher
	recompilationCallback func(*template.Registry)
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{globals: make(map[string]interface{})}
}

// WithOptions sets the options the bundle's templates are compiled with.
func (b *Bundle) WithOptions(opts *template.Options) *Bundle {
	b.opts = opts
	return b
}

// WatchFiles tells the bundle to watch any template files added to it,
// re-compile as necessary, and propagate the updates to the compiled
// registry.  It should be called once, before adding any files.
func (b *Bundle) WatchFiles(watch bool) *Bundle {
	if watch && b.err == nil && b.watcher == nil {
		b.watcher, b.err = fsnotify.NewWatcher()
	}
	return b
}

// AddTemplateDir adds all template files found within the given directory
// (including sub-directories) to the bundle.  Each is registered under its
// path relative to root, with forward slashes.
func (b *Bundle) AddTemplateDir(root string) *Bundle {
	var err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isTemplate(path) {
			return nil
		}
		var rel, _ = filepath.Rel(root, path)
		b.addFile(filepath.ToSlash(rel), path)
		return nil
	})
	if err != nil {
		b.fail(errors.Wrapf(err, "adding template dir %s", root))
	}
	return b
}

func isTemplate(path string) bool {
	var ext = strings.ToLower(filepath.Ext(path))
	for _, e := range templateExts {
		if ext == e {
			return true
		}
	}
	return false
}

// AddTemplateFile adds the given template file to this bundle, registered
// under its filename.  If WatchFiles is on, it will be subsequently watched
// for updates.
func (b *Bundle) AddTemplateFile(filename string) *Bundle {
	return b.addFile(filename, filename)
}

func (b *Bundle) addFile(name, filename string) *Bundle {
	content, err := os.ReadFile(filename)
	if err != nil {
		return b.fail(errors.Wrapf(err, "reading template %s", filename))
	}
	if b.watcher != nil {
		if err = b.watcher.Add(filename); err != nil {
			return b.fail(errors.Wrapf(err, "watching %s", filename))
		}
	}
	b.files = append(b.files, templateFile{name, filename, string(content)})
	return b
}

// AddTemplateString adds the given template to the bundle under name.  The
// extension of name selects the parser: .txt for text templates, .html or
// .htm for HTML, and XML otherwise.
func (b *Bundle) AddTemplateString(name, content string) *Bundle {
	b.files = append(b.files, templateFile{name: name, content: content})
	return b
}

// AddGlobalsFile opens and parses the given YAML file, whose top level must
// be a mapping, and adds the resulting globals to the bundle.
func (b *Bundle) AddGlobalsFile(filename string) *Bundle {
	var f, err = os.Open(filename)
	if err != nil {
		return b.fail(errors.Wrapf(err, "reading globals %s", filename))
	}
	defer f.Close()
	globals, err := ParseGlobals(f)
	if err != nil {
		return b.fail(errors.Wrapf(err, "parsing globals %s", filename))
	}
	return b.AddGlobalsMap(globals)
}

// ParseGlobals parses a YAML document of global variables.
func ParseGlobals(r io.Reader) (map[string]interface{}, error) {
	var doc interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}
	return cast.ToStringMapE(doc)
}

// AddGlobalsMap adds the given globals to the bundle.  A global may be
// defined only once.
func (b *Bundle) AddGlobalsMap(globals map[string]interface{}) *Bundle {
	for k, v := range globals {
		if existing, ok := b.globals[k]; ok {
			return b.fail(fmt.Errorf("global %q already defined as %q", k, cast.ToString(existing)))
		}
		b.globals[k] = v
	}
	return b
}

// SetRecompilationCallback assigns the bundle a function to call after
// recompilation.  This is called before updating the in-use registry.
func (b *Bundle) SetRecompilationCallback(c func(*template.Registry)) *Bundle {
	b.recompilationCallback = c
	return b
}

func (b *Bundle) fail(err error) *Bundle {
	b.err = multierror.Append(b.err, err)
	return b
}

// Compile parses all of the templates in this bundle and returns the
// completed template registry.  The errors of all templates are reported
// together.
func (b *Bundle) Compile() (*template.Registry, error) {
	if b.err != nil {
		return nil, b.err
	}

	var registry = &template.Registry{}
	var errs *multierror.Error
	for _, file := range b.files {
		var tmpl, err = parseTemplate(file, b.opts)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		registry.Add(file.name, tmpl)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	registry.SetGlobals(b.globals)

	if b.watcher != nil {
		go b.recompiler(registry)
	}
	return registry, nil
}

func parseTemplate(file templateFile, opts *template.Options) (*template.Template, error) {
	var r = strings.NewReader(file.content)
	switch strings.ToLower(filepath.Ext(file.name)) {
	case ".txt":
		return template.ParseText(file.name, r, opts)
	case ".html", ".htm":
		return template.ParseHTML(file.name, r, opts)
	}
	return template.ParseXML(file.name, r, opts)
}

// Close stops watching the bundle's files.
func (b *Bundle) Close() error {
	if b.watcher == nil {
		return nil
	}
	return b.watcher.Close()
}

func (b *Bundle) recompiler(reg *template.Registry) {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				time.Sleep(10 * time.Millisecond)
				if err := b.watcher.Add(ev.Name); err != nil {
					Logger.Println(err)
				}
			}

			// Recompile all the templates.
			var bundle = NewBundle().
				WithOptions(b.opts).
				AddGlobalsMap(b.globals)
			for _, file := range b.files {
				if file.filename == "" {
					bundle.AddTemplateString(file.name, file.content)
				} else {
					bundle.addFile(file.name, file.filename)
				}
			}
			var registry, err = bundle.Compile()
			if err != nil {
				Logger.Println(err)
				continue
			}

			if b.recompilationCallback != nil {
				b.recompilationCallback(registry)
			}
			reg.Replace(registry)
			Logger.Printf("update successful (%v)", ev)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}
