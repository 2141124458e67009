package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field attaches a field name to err. A nil err returns nil, so the result
// of a validation call can be passed directly.
//
// Name fields the Go way, for example Threshold or Owners. Nested fields use
// a dot separated path and elements of a collection are referenced by their
// zero based index, for example Owners.2.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{
		parent: err,
		field:  fieldName,
		desc:   description,
	}
}

// AppendField returns errs extended with err attached to the given field.
// Nothing is appended when err is nil.
func AppendField(errs error, fieldName string, err error) error {
	return Append(errs, Field(fieldName, err, ""))
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.field, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.field, e.desc, e.parent)
}

// Format prints the error the same way a wrapped error is printed.
func (e *fieldError) Format(s fmt.State, verb rune) {
	format(e, s, verb)
}

func (e *fieldError) Cause() error {
	return e.parent
}

func (e *fieldError) Field() string {
	return e.field
}

// FieldErrors returns all errors attached to fieldName that err carries,
// either directly, by wrapping or as a member of a multi error.
func FieldErrors(err error, fieldName string) []error {
	if isNilErr(err) {
		return nil
	}
	if f, ok := err.(fielder); ok && f.Field() == fieldName {
		return []error{err}
	}
	if u, ok := err.(unpacker); ok {
		var res []error
		for _, e := range u.Unpack() {
			res = append(res, FieldErrors(e, fieldName)...)
		}
		return res
	}
	if c, ok := err.(causer); ok {
		return FieldErrors(c.Cause(), fieldName)
	}
	return nil
}

// fielder is implemented by errors created for a single field.
type fielder interface {
	Field() string
}
