/*
Package genshi is a template engine for generating XML, HTML and text output,
modelled on Genshi.

Templates are well-formed markup.  Directives in the
http://genshi.edgewall.org/ namespace, conventionally bound to the "py"
prefix, control the output: py:if, py:choose/py:when/py:otherwise, py:for,
py:with, py:def, py:match, py:replace, py:content, py:attrs and py:strip.
Expressions are embedded in text and attribute values as ${expr} or $name.

Usage example

Typically in a web application you have a directory containing views for all of
your pages.  For example:

  app/views/
  app/views/account/
  app/views/feed/
  ...

This code snippet will parse a file of globals and all templates within
app/views, and provide back a Registry that can be used to render any of them
by its path.  (Error checking is skipped.)

On startup:

  registry, _ := genshi.NewBundle().
      WatchFiles(mode == "dev").            // watch template files, reload on changes (in dev)
      AddGlobalsFile("views/globals.yaml"). // parse a YAML file of globals
      AddTemplateDir("views").              // load *.html, *.xml and *.txt in all sub-directories
      Compile()

To render a page:

  var obj = map[string]interface{}{
    "user":    user,
    "account": account,
  }
  registry.Render(resp, "account/overview.html", obj, markup.HTML)

Structs are converted to maps using data.New, with lowerCamel field names by
default.

Advanced Usage

The genshi package provides a friendly interface to its sub-packages.
Templates can be parsed and rendered directly with the template package, and
the event stream of a render can be transformed before serialization with
stream filters, e.g. the gettext translation filter of the i18n package:

  var tr = i18n.NewTranslator(catalogs.Catalog("de"))
  stream, _ := registry.Generate("account/overview.html", obj)
  stream.Filter(tr.Filter()).Serialize(resp, markup.HTML)

Expressions are compiled by the expr-lang dialect of the eval/exprlang package
by default; template.Options selects another dialect, such as the JavaScript
dialect of eval/jsexpr.
*/
package genshi
