package wallet

import (
	"math"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
)

const (
	// AccountBucketName is where the pool balance is stored.
	AccountBucketName = "account"

	poolKey = "pool"
)

var _ orm.Model = (*Account)(nil)

// Validate ensures the account can be stored.
func (a *Account) Validate() error {
	return validateSchema(a.Schema)
}

// Pool is the value account controlled by the owners.
type Pool struct {
	bucket orm.Bucket
}

// NewPool returns the pool stored under the default bucket.
func NewPool() Pool {
	return Pool{
		bucket: orm.NewBucket(AccountBucketName, orm.NewSimpleObj(nil, new(Account))),
	}
}

// Balance returns the pool balance. An account that never received a deposit
// has zero balance.
func (p Pool) Balance(db custody.ReadOnlyKVStore) (uint64, error) {
	acc, err := p.load(db)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Deposit increases the pool balance and returns the new balance. A zero
// amount is accepted.
func (p Pool) Deposit(db custody.KVStore, amount uint64) (uint64, error) {
	acc, err := p.load(db)
	if err != nil {
		return 0, err
	}
	if amount > math.MaxUint64-acc.Balance {
		return 0, errors.Wrapf(errors.ErrOverflow, "balance %d, deposit %d", acc.Balance, amount)
	}
	acc.Balance += amount
	if err := p.save(db, acc); err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Withdraw decreases the pool balance. It fails if the balance is lower than
// the amount.
func (p Pool) Withdraw(db custody.KVStore, amount uint64) error {
	acc, err := p.load(db)
	if err != nil {
		return err
	}
	if acc.Balance < amount {
		return errors.Wrapf(errors.ErrAmount, "insufficient balance: %d < %d", acc.Balance, amount)
	}
	acc.Balance -= amount
	return p.save(db, acc)
}

func (p Pool) load(db custody.ReadOnlyKVStore) (*Account, error) {
	obj, err := p.bucket.Get(db, []byte(poolKey))
	if err != nil {
		return nil, errors.Wrap(err, "account lookup")
	}
	if obj == nil {
		return &Account{Schema: schemaVersion}, nil
	}
	acc, ok := obj.Value().(*Account)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return acc, nil
}

func (p Pool) save(db custody.KVStore, acc *Account) error {
	return p.bucket.Save(db, orm.NewSimpleObj([]byte(poolKey), acc))
}

// Vault gives a transfer executor access to the pool balance. Changes are
// applied to the in-flight execution and rolled back together with it.
type Vault interface {
	Balance() (uint64, error)
	Withdraw(amount uint64) error
}

type vault struct {
	pool Pool
	db   custody.KVStore
}

var _ Vault = vault{}

func (v vault) Balance() (uint64, error) {
	return v.pool.Balance(v.db)
}

func (v vault) Withdraw(amount uint64) error {
	return v.pool.Withdraw(v.db, amount)
}
