/*
Package assert provides error assertions that understand the custody errors
package: field errors, multi errors and root error matching.
*/
package assert

import (
	"testing"

	"github.com/iov-one/custody/errors"
)

// FieldError ensures that given error contains the exact match of a single
// field error, tested by its type (.Is method call).
// To test that no error was found for a given field name, use `nil` as the
// match value.
func FieldError(t testing.TB, err error, fieldName string, want *errors.Error) {
	t.Helper()

	errs := errors.FieldErrors(err, fieldName)

	if want == nil {
		switch len(errs) {
		case 0:
			return
		case 1:
			t.Fatalf("expected no error, got %q", errs[0])
		default:
			logErrors(t, errs)
			t.Fatalf("expected no error, got %d", len(errs))
		}
		return
	}

	switch len(errs) {
	case 0:
		t.Fatalf("no %q field error found in %+v", fieldName, err)
	case 1:
		if !want.Is(errs[0]) {
			t.Fatalf("unexpected error found: %q", errs[0])
		}
	default:
		t.Errorf("want one error, got %d", len(errs))
		logErrors(t, errs)
	}
}

// IsErr fails the test if got is not of the kind of want. A nil want
// expects no error.
func IsErr(t testing.TB, want *errors.Error, got error) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Fatalf("want no error, got %+v", got)
		}
		return
	}
	if !want.Is(got) {
		t.Fatalf("want %q (code %d), got %+v", want, want.ABCICode(), got)
	}
}

// ErrorCode fails the test if the code of given error is different.
func ErrorCode(t testing.TB, want uint32, got error) {
	t.Helper()
	if code := errors.ABCICode(got); code != want {
		t.Fatalf("want code %d, got %d: %+v", want, code, got)
	}
}

func logErrors(t testing.TB, errs []error) {
	t.Helper()
	for i, e := range errs {
		t.Logf("\terror %d: %q", i+1, e)
	}
}
