package wallet

import (
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
)

const (
	// TransactionBucketName is where transactions are stored.
	TransactionBucketName = "txs"
	// ConfirmationBucketName is where owner confirmations are stored.
	ConfirmationBucketName = "confirms"
	// SequenceName is an auto-increment ID counter for transactions.
	SequenceName = "id"
)

var _ orm.Model = (*Transaction)(nil)

// Validate ensures the transaction can be stored.
func (t *Transaction) Validate() error {
	if err := validateSchema(t.Schema); err != nil {
		return err
	}
	if err := t.Destination.Validate(); err != nil {
		return errors.Field("Destination", err, "invalid destination")
	}
	return nil
}

// Copy returns a deep copy of the transaction.
func (t *Transaction) Copy() *Transaction {
	cpy := *t
	cpy.Destination = t.Destination.Clone()
	if t.Payload != nil {
		cpy.Payload = append([]byte{}, t.Payload...)
	}
	return &cpy
}

var _ orm.Model = (*Confirmation)(nil)

// Validate ensures the confirmation can be stored.
func (c *Confirmation) Validate() error {
	if err := validateSchema(c.Schema); err != nil {
		return err
	}
	return errors.Field("Owner", c.Owner.Validate(), "invalid owner")
}

// txKey returns the key a transaction is stored under. Keys sort in the same
// order as transaction IDs.
func txKey(id uint64) []byte {
	return orm.EncodeSequence(int64(id))
}

// Ledger is an append only list of transactions together with the owner
// confirmations of each transaction.
//
// The confirmation count of a transaction is a cache of the number of
// confirmation entries. Ledger methods update both together.
type Ledger struct {
	txs   orm.Bucket
	seq   orm.Sequence
	confs orm.Bucket
}

// NewLedger returns a ledger using the default bucket names.
func NewLedger() Ledger {
	return Ledger{
		txs:   orm.NewBucket(TransactionBucketName, orm.NewSimpleObj(nil, new(Transaction))),
		seq:   orm.NewSequence(TransactionBucketName, SequenceName),
		confs: orm.NewBucket(ConfirmationBucketName, orm.NewSimpleObj(nil, new(Confirmation))),
	}
}

// Count returns the number of transactions in the ledger.
func (l Ledger) Count(db custody.ReadOnlyKVStore) (uint64, error) {
	n, _, err := l.seq.Latest(db)
	if err != nil {
		return 0, errors.Wrap(err, "sequence")
	}
	return uint64(n), nil
}

// Append stores a new, not executed and not confirmed transaction. The
// transaction ID is the position in the ledger, starting with zero.
func (l Ledger) Append(db custody.KVStore, destination custody.Address, amount uint64, payload []byte) (*Transaction, error) {
	n, err := l.seq.NextInt(db)
	if err != nil {
		return nil, errors.Wrap(err, "sequence")
	}
	tx := &Transaction{
		Schema:      schemaVersion,
		ID:          uint64(n - 1),
		Destination: destination.Clone(),
		Amount:      amount,
	}
	if len(payload) > 0 {
		tx.Payload = append([]byte{}, payload...)
	}
	if err := l.save(db, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Get returns the transaction with given ID.
func (l Ledger) Get(db custody.ReadOnlyKVStore, id uint64) (*Transaction, error) {
	count, err := l.Count(db)
	if err != nil {
		return nil, err
	}
	if id >= count {
		return nil, errors.Wrapf(ErrTxNotFound, "tx %d, ledger size %d", id, count)
	}
	obj, err := l.txs.Get(db, txKey(id))
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if obj == nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "tx %d missing", id)
	}
	tx, ok := obj.Value().(*Transaction)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return tx, nil
}

// MarkExecuted sets the executed flag of given transaction.
func (l Ledger) MarkExecuted(db custody.KVStore, tx *Transaction) error {
	if tx.Executed {
		return errors.Wrapf(ErrAlreadyExecuted, "tx %d", tx.ID)
	}
	tx.Executed = true
	return l.save(db, tx)
}

// IsConfirmed returns true if given owner confirmed the transaction.
func (l Ledger) IsConfirmed(db custody.ReadOnlyKVStore, id uint64, owner custody.Address) (bool, error) {
	return l.confs.Has(db, confirmationKey(id, owner))
}

// Confirm stores the confirmation of given owner and increments the
// confirmation count of the transaction.
func (l Ledger) Confirm(db custody.KVStore, tx *Transaction, owner custody.Address) error {
	switch ok, err := l.IsConfirmed(db, tx.ID, owner); {
	case err != nil:
		return err
	case ok:
		return errors.Wrapf(ErrAlreadyConfirmed, "tx %d, owner %s", tx.ID, owner)
	}
	c := &Confirmation{Schema: schemaVersion, Owner: owner.Clone()}
	if err := l.confs.Save(db, orm.NewSimpleObj(confirmationKey(tx.ID, owner), c)); err != nil {
		return errors.Wrap(err, "save confirmation")
	}
	tx.ConfirmationCount++
	return l.save(db, tx)
}

// Revoke removes the confirmation of given owner and decrements the
// confirmation count of the transaction.
func (l Ledger) Revoke(db custody.KVStore, tx *Transaction, owner custody.Address) error {
	switch ok, err := l.IsConfirmed(db, tx.ID, owner); {
	case err != nil:
		return err
	case !ok:
		return errors.Wrapf(ErrNotConfirmed, "tx %d, owner %s", tx.ID, owner)
	}
	if tx.ConfirmationCount == 0 {
		return errors.Wrapf(errors.ErrState, "tx %d confirmation count out of sync", tx.ID)
	}
	if err := l.confs.Delete(db, confirmationKey(tx.ID, owner)); err != nil {
		return errors.Wrap(err, "delete confirmation")
	}
	tx.ConfirmationCount--
	return l.save(db, tx)
}

// Confirmations returns all owners that confirmed given transaction, ordered
// by their address.
func (l Ledger) Confirmations(db custody.ReadOnlyKVStore, id uint64) ([]custody.Address, error) {
	objs, err := l.confs.PrefixScan(db, txKey(id), false)
	if err != nil {
		return nil, errors.Wrap(err, "confirmations")
	}
	res := make([]custody.Address, 0, len(objs))
	for _, obj := range objs {
		c, ok := obj.Value().(*Confirmation)
		if !ok {
			return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
		}
		res = append(res, c.Owner)
	}
	return res, nil
}

func (l Ledger) save(db custody.KVStore, tx *Transaction) error {
	if err := l.txs.Save(db, orm.NewSimpleObj(txKey(tx.ID), tx)); err != nil {
		return errors.Wrapf(err, "save tx %d", tx.ID)
	}
	return nil
}

func confirmationKey(id uint64, owner custody.Address) []byte {
	key := txKey(id)
	return append(key, owner...)
}
