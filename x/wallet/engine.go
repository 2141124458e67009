package wallet

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/utils"
)

// Engine applies owner operations to the wallet state.
//
// All mutations are serialized by a single writer lock and each runs on a
// savepoint of the store that is written only if the operation succeeds.
// When the store can commit, every successful mutation is committed before
// the lock is released. Reads see committed state only.
//
// Events are delivered to sinks after the operation that produced them was
// committed and the lock was released, so sinks may call the engine.
type Engine struct {
	mu sync.RWMutex
	db custody.CacheableKVStore

	registry *Registry
	ledger   Ledger
	pool     Pool
	executor TransferExecutor
	sinks    []EventSink
}

// NewEngine returns an engine operating on given store. The store must be
// initialized with InitGenesis.
func NewEngine(db custody.CacheableKVStore, executor TransferExecutor, sinks ...EventSink) (*Engine, error) {
	if db == nil {
		return nil, errors.Wrap(ErrConfiguration, "store required")
	}
	if executor == nil {
		return nil, errors.Wrap(ErrConfiguration, "transfer executor required")
	}
	registry, err := LoadRegistry(db)
	if err != nil {
		return nil, err
	}
	return &Engine{
		db:       db,
		registry: registry,
		ledger:   NewLedger(),
		pool:     NewPool(),
		executor: executor,
		sinks:    sinks,
	}, nil
}

// execution is the state of an in-flight mutation. It is carried by the
// context passed to the transfer executor.
//
// An execution is finished once its operation returned. Its savepoint is
// then written or discarded and must not be used anymore.
type execution struct {
	db     custody.KVStore
	events []Event
	parent *execution
	done   int32
}

func (ex *execution) emit(e Event) {
	ex.events = append(ex.events, e)
}

func (ex *execution) finish() {
	atomic.StoreInt32(&ex.done, 1)
}

func (ex *execution) finished() bool {
	return atomic.LoadInt32(&ex.done) == 1
}

type executionKey struct {
	engine *Engine
}

// execution returns the innermost execution carried by ctx that is still in
// flight, or nil. A context kept past the end of its operation falls back to
// the enclosing execution or to the committed state.
func (e *Engine) execution(ctx context.Context) *execution {
	ex, _ := ctx.Value(executionKey{engine: e}).(*execution)
	for ex != nil && ex.finished() {
		ex = ex.parent
	}
	return ex
}

// mutate runs op on a savepoint. A call made with the context of an
// in-flight execution is applied on top of that execution, without taking
// the lock, and its events are published together with the execution.
func (e *Engine) mutate(ctx context.Context, name string, op func(ctx context.Context, ex *execution) error) error {
	ctx = custody.WithLogInfo(ctx, "op", name)

	parent := e.execution(ctx)

	var events []Event
	run := func(ctx context.Context, db custody.KVStore) error {
		ex := &execution{db: db, parent: parent}
		defer ex.finish()
		if err := op(context.WithValue(ctx, executionKey{engine: e}, ex), ex); err != nil {
			return err
		}
		events = ex.events
		return nil
	}

	if parent != nil {
		err := utils.Chain(run,
			utils.Logging(name, false),
			utils.Savepoint(),
			utils.Recovery(),
		)(ctx, parent.db)
		if err != nil {
			return err
		}
		parent.events = append(parent.events, events...)
		return nil
	}

	e.mu.Lock()
	err := utils.Chain(run,
		utils.Logging(name, false),
		commit,
		utils.Savepoint(),
		utils.Recovery(),
	)(ctx, e.db)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.publish(ctx, events)
	return nil
}

// read runs fn on the committed state or, when called from inside an
// execution, on the in-flight state.
func (e *Engine) read(ctx context.Context, name string, fn func(db custody.ReadOnlyKVStore) error) error {
	if ex := e.execution(ctx); ex != nil {
		return fn(ex.db)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	err := fn(e.db)
	utils.LogDuration(custody.WithLogInfo(ctx, "op", name), start, name, err, true)
	return err
}

func (e *Engine) publish(ctx context.Context, events []Event) {
	logger := custody.GetLogger(ctx)
	for _, ev := range events {
		logger.Debug("event", append([]interface{}{"kind", ev.Kind()}, ev.Tags()...)...)
		for _, s := range e.sinks {
			s.Handle(ctx, ev)
		}
	}
}

type committer interface {
	Commit() (custody.CommitID, error)
}

type rollbacker interface {
	Rollback()
}

func rollback(db custody.KVStore) {
	if r, ok := db.(rollbacker); ok {
		r.Rollback()
	}
}

// commit persists the state of a committing store after a successful
// operation. On failure the working state is rolled back, so that writes
// left behind by a partial savepoint write are never committed later.
func commit(next utils.Operation) utils.Operation {
	return func(ctx context.Context, db custody.KVStore) error {
		c, ok := db.(committer)
		if err := next(ctx, db); err != nil {
			if ok {
				rollback(db)
			}
			return err
		}
		if !ok {
			return nil
		}
		id, err := c.Commit()
		if err != nil {
			rollback(db)
			return errors.Wrapf(errors.ErrDatabase, "commit: %s", err)
		}
		custody.GetLogger(ctx).Debug("committed", "version", id.Version, "hash", id.Hash)
		return nil
	}
}

func (e *Engine) authorize(caller custody.Address) error {
	if !e.registry.IsOwner(caller) {
		return errors.Wrapf(ErrNotOwner, "caller %s", caller)
	}
	return nil
}

// Submit appends a new transaction to the ledger and returns its ID. The
// submitter does not confirm the transaction.
func (e *Engine) Submit(ctx context.Context, caller, destination custody.Address, amount uint64, payload []byte) (uint64, error) {
	var id uint64
	err := e.mutate(ctx, "submit", func(ctx context.Context, ex *execution) error {
		if err := e.authorize(caller); err != nil {
			return err
		}
		tx, err := e.ledger.Append(ex.db, destination, amount, payload)
		if err != nil {
			return err
		}
		id = tx.ID
		ex.emit(TxSubmittedEvent{
			ID:          tx.ID,
			Submitter:   caller.Clone(),
			Destination: tx.Destination,
			Amount:      tx.Amount,
			Payload:     tx.Payload,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Confirm records the confirmation of the caller. An owner can confirm a
// transaction only once.
func (e *Engine) Confirm(ctx context.Context, caller custody.Address, id uint64) error {
	return e.mutate(ctx, "confirm", func(ctx context.Context, ex *execution) error {
		if err := e.authorize(caller); err != nil {
			return err
		}
		tx, err := e.ledger.Get(ex.db, id)
		if err != nil {
			return err
		}
		if err := e.ledger.Confirm(ex.db, tx, caller); err != nil {
			return err
		}
		ex.emit(TxConfirmedEvent{Owner: caller.Clone(), ID: id})
		return nil
	})
}

// Revoke removes the confirmation of the caller from a transaction that was
// not executed yet.
func (e *Engine) Revoke(ctx context.Context, caller custody.Address, id uint64) error {
	return e.mutate(ctx, "revoke", func(ctx context.Context, ex *execution) error {
		if err := e.authorize(caller); err != nil {
			return err
		}
		tx, err := e.ledger.Get(ex.db, id)
		if err != nil {
			return err
		}
		if tx.Executed {
			return errors.Wrapf(ErrAlreadyExecuted, "tx %d", id)
		}
		if err := e.ledger.Revoke(ex.db, tx, caller); err != nil {
			return err
		}
		ex.emit(TxRevokedEvent{Owner: caller.Clone(), ID: id})
		return nil
	})
}

// Execute transfers the value of a confirmed transaction. Any owner can
// execute a transaction.
//
// The transaction is marked as executed before the transfer executor is
// called. If the executor fails, all changes are rolled back and
// ErrTransferFailed is returned.
func (e *Engine) Execute(ctx context.Context, caller custody.Address, id uint64) error {
	return e.mutate(ctx, "execute", func(ctx context.Context, ex *execution) error {
		if err := e.authorize(caller); err != nil {
			return err
		}
		tx, err := e.ledger.Get(ex.db, id)
		if err != nil {
			return err
		}
		if tx.Executed {
			return errors.Wrapf(ErrAlreadyExecuted, "tx %d", id)
		}
		if tx.ConfirmationCount < e.registry.Threshold {
			return errors.Wrapf(ErrInsufficientConfirmations,
				"tx %d: %d < %d", id, tx.ConfirmationCount, e.registry.Threshold)
		}
		if err := e.ledger.MarkExecuted(ex.db, tx); err != nil {
			return err
		}
		if err := e.transfer(ctx, ex.db, tx); err != nil {
			return errors.Wrapf(ErrTransferFailed, "tx %d: %s", id, err)
		}
		ex.emit(TxExecutedEvent{Caller: caller.Clone(), ID: id})
		return nil
	})
}

func (e *Engine) transfer(ctx context.Context, db custody.KVStore, tx *Transaction) (err error) {
	defer errors.Recover(&err)
	from := vault{pool: e.pool, db: db}
	return e.executor.Transfer(ctx, db, from, tx.Destination.Clone(), tx.Amount, tx.Payload)
}

// Deposit adds value to the pool and returns the new balance. Anyone can
// deposit.
func (e *Engine) Deposit(ctx context.Context, from custody.Address, amount uint64) (uint64, error) {
	var balance uint64
	err := e.mutate(ctx, "deposit", func(ctx context.Context, ex *execution) error {
		if err := from.Validate(); err != nil {
			return errors.Wrap(err, "depositor")
		}
		b, err := e.pool.Deposit(ex.db, amount)
		if err != nil {
			return err
		}
		balance = b
		ex.emit(DepositEvent{From: from.Clone(), Amount: amount, Balance: b})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Balance returns the pool balance.
func (e *Engine) Balance(ctx context.Context) (uint64, error) {
	var balance uint64
	err := e.read(ctx, "balance", func(db custody.ReadOnlyKVStore) error {
		b, err := e.pool.Balance(db)
		balance = b
		return err
	})
	return balance, err
}

// Owners returns all owners in registration order.
func (e *Engine) Owners() []custody.Address {
	return e.registry.OwnerList()
}

// Threshold returns the number of confirmations required to execute a
// transaction.
func (e *Engine) Threshold() uint32 {
	return e.registry.RequiredConfirmations()
}

// IsOwner returns true if given address is one of the owners.
func (e *Engine) IsOwner(addr custody.Address) bool {
	return e.registry.IsOwner(addr)
}

// TransactionCount returns the number of submitted transactions.
func (e *Engine) TransactionCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := e.read(ctx, "count", func(db custody.ReadOnlyKVStore) error {
		n, err := e.ledger.Count(db)
		count = n
		return err
	})
	return count, err
}

// Transaction returns a snapshot of the transaction with given ID.
func (e *Engine) Transaction(ctx context.Context, id uint64) (*Transaction, error) {
	var tx *Transaction
	err := e.read(ctx, "transaction", func(db custody.ReadOnlyKVStore) error {
		t, err := e.ledger.Get(db, id)
		if err != nil {
			return err
		}
		tx = t.Copy()
		return nil
	})
	return tx, err
}

// IsConfirmed returns true if given owner confirmed the transaction.
func (e *Engine) IsConfirmed(ctx context.Context, id uint64, owner custody.Address) (bool, error) {
	var ok bool
	err := e.read(ctx, "is confirmed", func(db custody.ReadOnlyKVStore) error {
		if _, err := e.ledger.Get(db, id); err != nil {
			return err
		}
		c, err := e.ledger.IsConfirmed(db, id, owner)
		ok = c
		return err
	})
	return ok, err
}

// Confirmations returns the owners that confirmed the transaction, in
// registration order.
func (e *Engine) Confirmations(ctx context.Context, id uint64) ([]custody.Address, error) {
	var owners []custody.Address
	err := e.read(ctx, "confirmations", func(db custody.ReadOnlyKVStore) error {
		if _, err := e.ledger.Get(db, id); err != nil {
			return err
		}
		confirmed, err := e.ledger.Confirmations(db, id)
		if err != nil {
			return err
		}
		set := make(map[string]struct{}, len(confirmed))
		for _, c := range confirmed {
			set[string(c)] = struct{}{}
		}
		owners = make([]custody.Address, 0, len(confirmed))
		for _, o := range e.registry.Owners {
			if _, ok := set[string(o)]; ok {
				owners = append(owners, o.Clone())
			}
		}
		return nil
	})
	return owners, err
}
