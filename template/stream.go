package template

import (
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/davidfraser/genshi/markup"
)

// Filter transforms a rendered event stream.
type Filter func(iter.Seq[markup.Event]) iter.Seq[markup.Event]

// Stream is the output of a render.  The render runs as the stream is
// consumed, so a Stream can be consumed only once.
type Stream struct {
	seq    iter.Seq[markup.Event]
	err    error
	method markup.Method
}

// Method returns the output method of the template that produced the stream.
func (s *Stream) Method() markup.Method {
	return s.method
}

// Filter returns a stream that passes the events through the filters, in
// order.
func (s *Stream) Filter(filters ...Filter) *Stream {
	var seq = s.seq
	if s.err == nil {
		for _, f := range filters {
			seq = f(seq)
		}
	}
	return &Stream{seq: seq, err: s.err, method: s.method}
}

// All returns the events of the stream.  A render error panics; use Events,
// Render or Serialize to receive it as an error.
func (s *Stream) All() iter.Seq[markup.Event] {
	if s.err != nil {
		var err = s.err
		return func(func(markup.Event) bool) { panic(err) }
	}
	return s.seq
}

// Events renders the whole stream.
func (s *Stream) Events() (events []markup.Event, err error) {
	if s.err != nil {
		return nil, s.err
	}
	defer errRecover(&err)
	return slices.Collect(s.seq), nil
}

// Serialize renders the stream to w in the given output format.
func (s *Stream) Serialize(w io.Writer, method markup.Method) (err error) {
	if s.err != nil {
		return s.err
	}
	defer errRecover(&err)
	return markup.Serialize(w, s.seq, method)
}

// Render renders the stream in the given output format and returns the
// result.
func (s *Stream) Render(method markup.Method) (string, error) {
	var sb strings.Builder
	if err := s.Serialize(&sb, method); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// String renders the stream in the template's default output format.
// Errors are rendered in place of the output.
func (s *Stream) String() string {
	var out, err = s.Render(s.method)
	if err != nil {
		return "<error: " + err.Error() + ">"
	}
	return out
}
