package wallet_test

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/custodytest"
	"github.com/iov-one/custody/custodytest/assert"
	"github.com/iov-one/custody/x/wallet"
	testify "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReentrantExecute(t *testing.T) {
	ctx := context.Background()
	db, owners := custodytest.NewWallet(t, 3, 2)

	var (
		e         *wallet.Engine
		nestedErr error
		seen      *wallet.Transaction
	)
	exec := &custodytest.Executor{
		Hook: func(ctx context.Context, db custody.KVStore) error {
			tx, err := e.Transaction(ctx, 0)
			if err != nil {
				return err
			}
			seen = tx
			// The executor tries to run the same transaction again.
			nestedErr = e.Execute(ctx, owners[1], 0)
			return nil
		},
	}
	sink := &custodytest.Sink{}
	e, err := wallet.NewEngine(db, exec, sink)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, owners[0], 10)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[2], 4, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	require.NoError(t, e.Confirm(ctx, owners[1], id))

	done := make(chan error, 1)
	go func() { done <- e.Execute(ctx, owners[0], id) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("execute deadlocked")
	}

	assert.IsErr(t, wallet.ErrAlreadyExecuted, nestedErr)
	require.NotNil(t, seen)
	testify.True(t, seen.Executed, "executor must observe the executed flag")

	balance, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(6), balance)
	testify.Equal(t, 1, exec.CallCount())
	testify.Equal(t, 1, sink.Count("TxExecuted"))
}

func TestReentrantCallsAreRolledBack(t *testing.T) {
	ctx := context.Background()
	db, owners := custodytest.NewWallet(t, 2, 1)

	var e *wallet.Engine
	exec := &custodytest.Executor{
		Hook: func(ctx context.Context, db custody.KVStore) error {
			// Changes made through the engine during the transfer
			// belong to the execution.
			if _, err := e.Submit(ctx, owners[1], owners[0], 1, nil); err != nil {
				return err
			}
			if _, err := e.Deposit(ctx, owners[1], 100); err != nil {
				return err
			}
			return nil
		},
	}
	sink := &custodytest.Sink{}
	e, err := wallet.NewEngine(db, exec, sink)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, owners[0], 1)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[1], 5, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	sink.Reset()

	// The nested deposit runs before the withdrawal.
	require.NoError(t, e.Execute(ctx, owners[0], id))
	testify.Equal(t, []string{"TxSubmitted", "Deposit", "TxExecuted"}, sink.Kinds())

	count, err := e.TransactionCount(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(2), count)
	balance, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(96), balance)

	// A failing execution drops the nested changes and their events.
	id, err = e.Submit(ctx, owners[0], owners[1], 1000, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	sink.Reset()

	err = e.Execute(ctx, owners[0], id)
	assert.IsErr(t, wallet.ErrTransferFailed, err)
	testify.Empty(t, sink.Events())

	count, err = e.TransactionCount(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(3), count)
	balance, err = e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(96), balance)
}

func TestSinkMayCallEngine(t *testing.T) {
	ctx := context.Background()
	db, owners := custodytest.NewWallet(t, 1, 1)

	var (
		e        *wallet.Engine
		observed []uint64
	)
	sink := wallet.EventSinkFunc(func(ctx context.Context, ev wallet.Event) {
		b, err := e.Balance(ctx)
		if err != nil {
			t.Errorf("balance: %+v", err)
			return
		}
		observed = append(observed, b)
	})
	e, err := wallet.NewEngine(db, &custodytest.Executor{}, sink)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := e.Deposit(ctx, owners[0], 7)
		testify.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event delivery deadlocked")
	}
	testify.Equal(t, []uint64{7}, observed)
}

func TestKeptContextAfterExecution(t *testing.T) {
	ctx := context.Background()
	db, owners := custodytest.NewWallet(t, 2, 1)

	var kept context.Context
	exec := &custodytest.Executor{
		Hook: func(ctx context.Context, db custody.KVStore) error {
			kept = ctx
			return nil
		},
	}
	sink := &custodytest.Sink{}
	e, err := wallet.NewEngine(db, exec, sink)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, owners[0], 10)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[1], 6, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	require.NoError(t, e.Execute(ctx, owners[0], id))
	require.NotNil(t, kept)
	sink.Reset()

	// The execution is over. Calls made with its context are regular
	// operations on the committed state.
	balance, err := e.Deposit(kept, owners[1], 100)
	require.NoError(t, err)
	testify.Equal(t, uint64(104), balance)
	testify.Equal(t, []string{"Deposit"}, sink.Kinds())

	committed, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(104), committed)

	reported, err := e.Balance(kept)
	require.NoError(t, err)
	testify.Equal(t, committed, reported)
}

func TestKeptNestedContextJoinsEnclosingExecution(t *testing.T) {
	ctx := context.Background()
	db, owners := custodytest.NewWallet(t, 2, 1)

	var (
		e         *wallet.Engine
		inner     context.Context
		depositTo uint64
	)
	exec := &custodytest.Executor{}
	exec.Hook = func(ctx context.Context, db custody.KVStore) error {
		// The outer transfer executes the second transaction and keeps
		// the context of that nested execution.
		exec.Hook = func(ctx context.Context, db custody.KVStore) error {
			inner = ctx
			return nil
		}
		if err := e.Execute(ctx, owners[0], 1); err != nil {
			return err
		}
		b, err := e.Deposit(inner, owners[1], 50)
		depositTo = b
		return err
	}
	e, err := wallet.NewEngine(db, exec)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, owners[0], 10)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		id, err := e.Submit(ctx, owners[0], owners[1], 1, nil)
		require.NoError(t, err)
		require.NoError(t, e.Confirm(ctx, owners[0], id))
	}

	done := make(chan error, 1)
	go func() { done <- e.Execute(ctx, owners[0], 0) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("execute deadlocked")
	}

	// Nested transfer withdrew 1, the deposit was applied to the outer
	// execution, then the outer transfer withdrew 1.
	testify.Equal(t, uint64(59), depositTo)
	balance, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(58), balance)
}
