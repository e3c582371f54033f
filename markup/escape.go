package markup

import "io"

var (
	htmlQuot = []byte("&#34;") // shorter than "&quot;"
	htmlAmp  = []byte("&amp;")
	htmlLt   = []byte("&lt;")
	htmlGt   = []byte("&gt;")
)

// escapeString is a modified version of the stdlib HTMLEscape routine that
// escapes a string without making copies.  Double quotes are only escaped if
// quotes is set, since text content does not need it.
func escapeString(w io.Writer, str string, quotes bool) error {
	last := 0
	for i := 0; i < len(str); i++ {
		var html []byte
		switch str[i] {
		case '"':
			if !quotes {
				continue
			}
			html = htmlQuot
		case '&':
			html = htmlAmp
		case '<':
			html = htmlLt
		case '>':
			html = htmlGt
		default:
			continue
		}
		if _, err := io.WriteString(w, str[last:i]); err != nil {
			return err
		}
		if _, err := w.Write(html); err != nil {
			return err
		}
		last = i + 1
	}
	_, err := io.WriteString(w, str[last:])
	return err
}
