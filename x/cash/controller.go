package cash

import (
	"context"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/wallet"
)

// Controller moves value between the wallet pool and destination balances.
type Controller struct {
	bucket Bucket
}

var _ wallet.TransferExecutor = Controller{}

// NewController returns a controller using given bucket.
func NewController(bucket Bucket) Controller {
	return Controller{bucket: bucket}
}

// Balance returns the balance of given address.
func (c Controller) Balance(db custody.ReadOnlyKVStore, addr custody.Address) (uint64, error) {
	s, err := c.bucket.GetOrCreate(db, addr)
	if err != nil {
		return 0, err
	}
	return s.Amount, nil
}

// Credit attempts to add the given amount to the destination address.
// Fails if it overflows the balance.
func (c Controller) Credit(db custody.KVStore, dest custody.Address, amount uint64) error {
	if err := dest.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	s, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return err
	}
	if err := s.Add(amount); err != nil {
		return err
	}
	return c.bucket.Store(db, dest, s)
}

// Transfer withdraws the amount from the pool and credits it to the
// destination. The payload is not interpreted.
func (c Controller) Transfer(ctx context.Context, db custody.KVStore, from wallet.Vault, destination custody.Address, amount uint64, payload []byte) error {
	if err := from.Withdraw(amount); err != nil {
		return errors.Wrap(err, "withdraw")
	}
	if err := c.Credit(db, destination, amount); err != nil {
		return errors.Wrap(err, "credit")
	}
	custody.GetLogger(ctx).Debug("transfer", "destination", destination, "amount", amount, "payload", len(payload))
	return nil
}
