package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no error is provided or all of them are nil, nil is returned. A single
// non nil error is returned as is.
func Append(errs ...error) error {
	var flat []error
	for _, err := range errs {
		if isNilErr(err) {
			continue
		}
		if m, ok := err.(*multiErr); ok {
			flat = append(flat, m.errs...)
			continue
		}
		flat = append(flat, err)
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &multiErr{errs: flat}
	}
}

// multiErr is an error that represents a collection of errors. Use Append to
// create one.
type multiErr struct {
	errs []error
}

func (e *multiErr) Error() string {
	if len(e.errs) == 1 {
		return fmt.Sprintf("1 error occurred:\n\t* %s\n\n", e.errs[0])
	}

	points := make([]string, len(e.errs))
	for i, err := range e.errs {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf(
		"%d errors occurred:\n\t%s\n\n",
		len(e.errs), strings.Join(points, "\n\t"))
}

// Unpack returns all errors this multi error is built from.
func (e *multiErr) Unpack() []error {
	return e.errs
}

// ABCICode returns the code of the first error, consistent with a fail-fast
// approach.
func (e *multiErr) ABCICode() uint32 {
	return ABCICode(e.errs[0])
}

// unpacker is implemented by errors that are a collection of other errors.
type unpacker interface {
	Unpack() []error
}

var (
	_ unpacker = (*multiErr)(nil)
	_ coder    = (*multiErr)(nil)
)
