package datio

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every *Error carries exactly one of these and matches it
// with errors.Is.
var (
	ErrStructural     = errors.New("structural error")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrValueFormat    = errors.New("value format error")
	ErrCapacity       = errors.New("capacity exceeded")
)

// Error is a codec failure attributed to a byte offset and, when known, to the
// field or section being processed.
type Error struct {
	Class  error
	Field  string
	Offset int64 // -1 when unknown
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("dat: ")
	if e.Class != nil {
		b.WriteString(e.Class.Error())
	} else {
		b.WriteString("error")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Class != nil {
		errs = append(errs, e.Class)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Errorf builds an *Error of the given class.
func Errorf(class error, offset int64, format string, args ...any) *Error {
	return &Error{
		Class:  class,
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

// WithField attributes err to a field. An *Error that already names a field
// gets the new name prefixed, so nested paths read "Outer.Inner". Other
// errors are wrapped as value format errors.
func WithField(err error, field string) error {
	if err == nil || field == "" {
		return err
	}
	var de *Error
	if errors.As(err, &de) {
		cp := *de
		switch {
		case cp.Field == "":
			cp.Field = field
		case strings.HasPrefix(cp.Field, "["):
			cp.Field = field + cp.Field
		default:
			cp.Field = field + "." + cp.Field
		}
		return &cp
	}
	return &Error{Class: ErrValueFormat, Field: field, Offset: -1, Err: err}
}

// OffsetOf returns the byte offset recorded in err, or -1.
func OffsetOf(err error) int64 {
	var de *Error
	if errors.As(err, &de) {
		return de.Offset
	}
	return -1
}
