// xgettext-genshi is a tool to extract messages from Genshi templates in the
// PO (gettext) file format.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidfraser/genshi/i18n"
)

func usage(w io.Writer) {
	fmt.Fprint(w, `xgettext-genshi is a tool to extract messages from Genshi templates.

Usage:

	./xgettext-genshi [INPUTPATH]...

INPUTPATH elements may be files or directories. Input directories will be
recursively searched for *.html, *.xml and *.txt files.

The resulting PO template file is written to STDOUT
`)
}

var (
	translator = i18n.NewTranslator(nil)
	messages   []i18n.Message
)

func main() {
	if len(os.Args) < 2 || strings.HasSuffix(os.Args[1], "help") {
		usage(os.Stdout)
		os.Exit(1)
	}

	for _, src := range os.Args[1:] {
		if err := filepath.Walk(src, walkSource); err != nil {
			exit(err)
		}
	}
	var file = i18n.POTemplate(messages)
	file.WriteTo(os.Stdout)
}

func walkSource(path string, info os.FileInfo, err error) error {
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xml", ".txt":
	default:
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	msgs, err := translator.ExtractFile(path, f)
	if err != nil {
		return err
	}
	messages = append(messages, msgs...)
	return nil
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
