/*
Package genshiweb is a simple development server that serves the given
template.

Invoke it like so:

  go install github.com/davidfraser/genshi/genshiweb
  genshiweb test.html

The template is recompiled on every request.  Parameters may be provided to
the template in the URL query string.  The output method defaults to the one
of the template and may be overridden with the "method" parameter.  Errors
located in the template are shown with the source line they point at.

*/
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/davidfraser/genshi"
	"github.com/davidfraser/genshi/errortypes"
	"github.com/davidfraser/genshi/markup"
)

var port = flag.Int("port", 9812, "port on which to listen")

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: genshiweb [-port N] TEMPLATE")
	}
	fmt.Print("Listening on :", *port, "...")
	log.Fatal(http.ListenAndServe(
		fmt.Sprintf(":%d", *port),
		handler(flag.Arg(0))))
}

func handler(filename string) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		var registry, err = genshi.NewBundle().
			AddTemplateFile(filename).
			Compile()
		if err != nil {
			writeError(res, err, 500)
			return
		}

		var query = req.URL.Query()
		var m = make(map[string]interface{})
		for k, v := range query {
			m[k] = v[0]
		}

		var stream, _ = registry.Generate(filename, m)
		var method = stream.Method()
		if name := query.Get("method"); name != "" {
			if method, err = markup.ParseMethod(name); err != nil {
				http.Error(res, err.Error(), 400)
				return
			}
		}

		var buf bytes.Buffer
		if err = stream.Serialize(&buf, method); err != nil {
			writeError(res, err, 500)
			return
		}
		io.Copy(res, &buf)
	}
}

// writeError writes a plain text error page listing the errors in err.
func writeError(res http.ResponseWriter, err error, code int) {
	var errs = []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	}
	var buf bytes.Buffer
	for _, e := range errs {
		fmt.Fprintln(&buf, e)
		if pos := errortypes.ToErrFilePos(e); pos != nil {
			buf.WriteString(excerpt(pos))
		}
	}
	http.Error(res, strings.TrimSuffix(buf.String(), "\n"), code)
}

// excerpt returns the source line pos points at, with a caret under its
// column if it has one.
func excerpt(pos errortypes.ErrFilePos) string {
	var src, err = os.ReadFile(pos.File())
	if err != nil {
		return ""
	}
	var lines = strings.Split(string(src), "\n")
	if pos.Line() < 1 || pos.Line() > len(lines) {
		return ""
	}
	var prefix = fmt.Sprintf("%4d | ", pos.Line())
	var out = prefix + lines[pos.Line()-1] + "\n"
	if pos.Col() > 0 {
		out += strings.Repeat(" ", len(prefix)+pos.Col()-1) + "^\n"
	}
	return out
}
