package errortypes_test

import (
	"errors"
	"testing"

	"github.com/davidfraser/genshi/errortypes"
	pkgerrors "github.com/pkg/errors"
)

func TestIsErrFilePos(t *testing.T) {
	var tests = []struct {
		name string
		in   error
		out  bool
	}{
		{
			name: "nil",
			out:  false,
		},
		{
			name: "errors.New",
			in:   errors.New("an error"),
			out:  false,
		},
		{
			name: "syntax error",
			in:   errortypes.NewSyntaxError("page.html", 1, 2, "message"),
			out:  true,
		},
		{
			name: "wrapped syntax error",
			in:   pkgerrors.Wrap(errortypes.NewSyntaxError("page.html", 3, 4, "bad"), "prepare"),
			out:  true,
		},
		{
			name: "bad directive",
			in:   errortypes.NewBadDirectiveError("iff", "page.html", 1, 1),
			out:  true,
		},
	}
	for _, test := range tests {
		got := errortypes.IsErrFilePos(test.in)
		if got != test.out {
			t.Errorf("%s: Expected %v, got %v", test.name, test.out, got)
		}
	}
}

func TestToErrFilePos(t *testing.T) {
	var tests = []struct {
		name             string
		in               error
		expectNil        bool
		expectedFilename string
		expectedLine     int
		expectedCol      int
	}{
		{
			name:      "nil",
			expectNil: true,
		},
		{
			name:      "errors.New",
			in:        errors.New("an error"),
			expectNil: true,
		},
		{
			name:             "syntax error",
			in:               errortypes.NewSyntaxError("page.html", 1, 2, "message"),
			expectNil:        false,
			expectedFilename: "page.html",
			expectedLine:     1,
			expectedCol:      2,
		},
		{
			name:             "wrapped runtime error",
			in:               pkgerrors.WithMessage(errortypes.WrapRuntimeError(errors.New("boom"), "page.html", 7, "for"), "render"),
			expectNil:        false,
			expectedFilename: "page.html",
			expectedLine:     7,
			expectedCol:      0,
		},
	}
	for _, test := range tests {
		got := errortypes.ToErrFilePos(test.in)
		if test.expectNil && got != nil {
			t.Errorf("%s: expected ErrFilePos to be nil", test.name)
		}
		if !test.expectNil {
			if got == nil {
				t.Errorf("%s: expected ErrFilePos to be non-nil", test.name)
				return
			}
			if got.File() != test.expectedFilename {
				t.Errorf("%s: expected file '%s', got '%s'", test.name, test.expectedFilename, got.File())
			}
			if got.Line() != test.expectedLine {
				t.Errorf("%s: expected line %d, got %d", test.name, test.expectedLine, got.Line())
			}
			if got.Col() != test.expectedCol {
				t.Errorf("%s: expected col %d, got %d", test.name, test.expectedCol, got.Col())
			}
		}
	}
}

func TestErrorMessages(t *testing.T) {
	var tests = []struct {
		in       error
		expected string
	}{
		{errortypes.NewSyntaxError("page.html", 2, 5, "missing value for %q", "replace"),
			`page.html:2: missing value for "replace"`},
		{errortypes.NewSyntaxError("", 2, 5, "oops"), "line 2: oops"},
		{errortypes.NewSyntaxError("", 0, 0, "oops"), "oops"},
		{errortypes.NewBadDirectiveError("iff", "page.html", 4, 1), `page.html:4: bad directive "iff"`},
		{errortypes.NewRuntimeError("page.html", 9, "when outside choose"), "page.html:9: when outside choose"},
		{errortypes.WrapRuntimeError(errors.New("int is not iterable"), "page.html", 3, "for"),
			"page.html:3: for: int is not iterable"},
	}
	for _, test := range tests {
		if got := test.in.Error(); got != test.expected {
			t.Errorf("expected %q, got %q", test.expected, got)
		}
	}
}

func TestRuntimeErrorUnwrap(t *testing.T) {
	var cause = errors.New("cause")
	var err error = errortypes.WrapRuntimeError(cause, "page.html", 1, "for")
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the cause")
	}
	var rerr *errortypes.RuntimeError
	if !errors.As(pkgerrors.Wrap(err, "render"), &rerr) || rerr.Lineno != 1 {
		t.Errorf("expected errors.As to find the runtime error, got %v", rerr)
	}
}
