package wallet

import (
	"context"

	"github.com/iov-one/custody"
)

// TransferExecutor moves value out of the pool once a transaction execution
// was authorized.
//
// The executor is called with the store view of the in-flight execution.
// The transaction is already marked as executed in that view. All changes
// done by the executor, including withdrawals from the vault, are discarded
// if it returns an error. Context carries the execution, so calls to the
// engine made with it are served from the same view. Do not use that context
// from another goroutine.
type TransferExecutor interface {
	Transfer(ctx context.Context, db custody.KVStore, from Vault, destination custody.Address, amount uint64, payload []byte) error
}

// TransferExecutorFunc is an adapter to use a function as a
// TransferExecutor.
type TransferExecutorFunc func(ctx context.Context, db custody.KVStore, from Vault, destination custody.Address, amount uint64, payload []byte) error

func (fn TransferExecutorFunc) Transfer(ctx context.Context, db custody.KVStore, from Vault, destination custody.Address, amount uint64, payload []byte) error {
	return fn(ctx, db, from, destination, amount, payload)
}
