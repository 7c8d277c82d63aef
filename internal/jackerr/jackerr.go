// Package jackerr defines the translator's error taxonomy. Every
// error carries the source line it was raised at so the driver can
// report a precise location without re-deriving it from context.
package jackerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags one of the five error categories a translation can fail
// with. All of them abort translation of the current file only.
type Kind string

const (
	IoError     Kind = "IoError"
	LexError    Kind = "LexError"
	SyntaxError Kind = "SyntaxError"
	Undefined   Kind = "Undefined"
	Duplicate   Kind = "Duplicate"
)

// Error is a typed, line-tagged translation failure.
type Error struct {
	Kind Kind
	Line int
	msg  string
	err  error // underlying wrapped cause, carries a stack via pkg/errors
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a Kind-tagged error with a stack trace attached.
func New(kind Kind, line int, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind: kind,
		Line: line,
		msg:  msg,
		err:  errors.WithStack(errors.New(msg)),
	}
}

// Wrap attaches a Kind and line number to an existing error, keeping
// it as the cause and attaching a stack trace taken at this call.
func Wrap(kind Kind, line int, err error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind: kind,
		Line: line,
		msg:  msg,
		err:  errors.WithMessage(errors.WithStack(err), msg),
	}
}

// Is reports whether err is a jackerr.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
