package utils

import (
	"context"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// Recovery turns panics into normal errors, so we can log them as errors
// and roll back the state.
func Recovery() Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context, db custody.KVStore) (err error) {
			defer errors.Recover(&err)
			return next(ctx, db)
		}
	}
}
