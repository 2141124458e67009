package utils

import (
	"context"

	"github.com/iov-one/custody"
)

// Operation is a unit of work applied to a store. All state changes of an
// operation are written to given store.
type Operation func(ctx context.Context, db custody.KVStore) error

// Decorator wraps an operation with additional behaviour.
type Decorator func(next Operation) Operation

// Chain wraps given operation with all decorators. The first decorator is the
// outermost one and is called first.
func Chain(op Operation, decorators ...Decorator) Operation {
	for i := len(decorators) - 1; i >= 0; i-- {
		op = decorators[i](op)
	}
	return op
}
