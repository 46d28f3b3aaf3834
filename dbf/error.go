package dbf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEOF is returned when a record position outside 0..RecordCount()-1
	// is read, negative positions included
	ErrEOF = errors.New("EOF")
	// ErrBOF marks a record position before the first record; the record
	// accessors of this package report such positions as ErrEOF
	ErrBOF = errors.New("BOF")
	// ErrIncomplete is returned when a field holds no bytes to decode
	ErrIncomplete = errors.New("INCOMPLETE")
	// ErrInvalid is returned when an invalid field position, write
	// position, field width, field order or date value is used
	ErrInvalid = errors.New("INVALID")
)

// Error carries the underlying error plus the chain of package contexts
// it bubbled through.
type Error struct {
	context []string
	err     error
}

func newError(context string, err error) Error {
	if inner, ok := err.(Error); ok {
		return Error{
			context: append([]string{context}, inner.context...),
			err:     inner.err,
		}
	}
	return Error{
		context: []string{context},
		err:     err,
	}
}

func newErrorf(context string, format string, v ...interface{}) Error {
	return newError(context, fmt.Errorf(format, v...))
}

func (e Error) Error() string {
	return e.err.Error()
}

func (e Error) Unwrap() error {
	return e.err
}

// Context returns the chain of contexts the error passed through,
// outermost first.
func (e Error) Context() []string {
	return e.context
}

func (e Error) trace() string {
	return strings.Join(append(append([]string{}, e.context...), e.err.Error()), ":")
}

// GetErrorTrace returns an error whose message contains the full
// context trace. Non-package errors are returned unchanged.
func GetErrorTrace(err error) error {
	if e, ok := err.(Error); ok {
		return errors.New(e.trace())
	}
	return err
}
