package utils

import (
	"context"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// Savepoint will isolate all data inside of the call,
// and commit/rollback to savepoint based on if error.
//
// When the store cannot be cache wrapped, the operation runs directly
// on it.
func Savepoint() Decorator {
	return func(next Operation) Operation {
		return func(ctx context.Context, db custody.KVStore) error {
			cstore, ok := db.(custody.CacheableKVStore)
			if !ok {
				return next(ctx, db)
			}

			cache := cstore.CacheWrap()
			if err := next(ctx, cache); err != nil {
				cache.Discard()
				return err
			}
			if err := cache.Write(); err != nil {
				return errors.Wrap(errors.ErrDatabase, "writing savepoint: "+err.Error())
			}
			return nil
		}
	}
}
