package wallet_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/custodytest"
	"github.com/iov-one/custody/custodytest/assert"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/wallet"
	"github.com/stretchr/testify/require"
	testify "github.com/stretchr/testify/assert"
)

// newEngine returns an engine with a wallet of n owners and given threshold.
func newEngine(t testing.TB, n, threshold int) (*wallet.Engine, []custody.Address, *custodytest.Executor, *custodytest.Sink) {
	t.Helper()
	db, owners := custodytest.NewWallet(t, n, threshold)
	exec := &custodytest.Executor{}
	sink := &custodytest.Sink{}
	e, err := wallet.NewEngine(db, exec, sink)
	require.NoError(t, err)
	return e, owners, exec, sink
}

func TestNewEngine(t *testing.T) {
	db, _ := custodytest.NewWallet(t, 2, 1)

	_, err := wallet.NewEngine(db, nil)
	assert.IsErr(t, wallet.ErrConfiguration, err)

	_, err = wallet.NewEngine(nil, &custodytest.Executor{})
	assert.IsErr(t, wallet.ErrConfiguration, err)

	e, err := wallet.NewEngine(db, &custodytest.Executor{})
	require.NoError(t, err)
	testify.Equal(t, uint32(1), e.Threshold())
}

func TestThreeOwnersScenario(t *testing.T) {
	ctx := context.Background()
	e, owners, exec, sink := newEngine(t, 3, 2)

	balance, err := e.Deposit(ctx, owners[0], 10)
	require.NoError(t, err)
	testify.Equal(t, uint64(10), balance)

	id, err := e.Submit(ctx, owners[0], owners[2], 1, nil)
	require.NoError(t, err)
	testify.Equal(t, uint64(0), id)

	// The submitter does not confirm implicitly.
	tx, err := e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.Equal(t, uint32(0), tx.ConfirmationCount)
	testify.False(t, tx.Executed)

	require.NoError(t, e.Confirm(ctx, owners[0], id))
	require.NoError(t, e.Confirm(ctx, owners[1], id))
	require.NoError(t, e.Execute(ctx, owners[1], id))

	balance, err = e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(9), balance)

	tx, err = e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.True(t, tx.Executed)
	testify.Equal(t, uint32(2), tx.ConfirmationCount)

	testify.Equal(t, 1, sink.Count("TxExecuted"))
	testify.Equal(t, []string{"Deposit", "TxSubmitted", "TxConfirmed", "TxConfirmed", "TxExecuted"}, sink.Kinds())
	testify.Equal(t, []custodytest.Transfer{{Destination: owners[2], Amount: 1}}, exec.Transfers())
}

func TestInsufficientConfirmationsScenario(t *testing.T) {
	ctx := context.Background()
	e, owners, exec, sink := newEngine(t, 3, 2)

	_, err := e.Deposit(ctx, owners[0], 10)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[2], 1, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))

	err = e.Execute(ctx, owners[0], id)
	assert.IsErr(t, wallet.ErrInsufficientConfirmations, err)

	balance, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(10), balance)
	testify.Equal(t, 0, exec.CallCount())
	testify.Equal(t, 0, sink.Count("TxExecuted"))
}

func TestNonOwnerIsRejected(t *testing.T) {
	ctx := context.Background()
	e, owners, exec, _ := newEngine(t, 3, 1)
	stranger := custodytest.NewAddress()

	_, err := e.Deposit(ctx, owners[0], 5)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[1], 1, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))

	// Existing and missing transactions must both be rejected with the
	// same error.
	for _, txID := range []uint64{id, 999} {
		t.Run(fmt.Sprintf("tx %d", txID), func(t *testing.T) {
			_, err := e.Submit(ctx, stranger, owners[1], 1, nil)
			assert.IsErr(t, wallet.ErrNotOwner, err)
			assert.IsErr(t, wallet.ErrNotOwner, e.Confirm(ctx, stranger, txID))
			assert.IsErr(t, wallet.ErrNotOwner, e.Revoke(ctx, stranger, txID))
			assert.IsErr(t, wallet.ErrNotOwner, e.Execute(ctx, stranger, txID))
		})
	}

	count, err := e.TransactionCount(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(1), count)
	testify.Equal(t, 0, exec.CallCount())
}

func TestUnknownTransaction(t *testing.T) {
	ctx := context.Background()
	e, owners, _, _ := newEngine(t, 2, 1)

	assert.IsErr(t, wallet.ErrTxNotFound, e.Confirm(ctx, owners[0], 0))
	assert.IsErr(t, wallet.ErrTxNotFound, e.Revoke(ctx, owners[0], 0))
	assert.IsErr(t, wallet.ErrTxNotFound, e.Execute(ctx, owners[0], 0))

	_, err := e.Transaction(ctx, 0)
	assert.IsErr(t, wallet.ErrTxNotFound, err)
	_, err = e.IsConfirmed(ctx, 0, owners[0])
	assert.IsErr(t, wallet.ErrTxNotFound, err)
	_, err = e.Confirmations(ctx, 0)
	assert.IsErr(t, wallet.ErrTxNotFound, err)
}

func TestSubmitAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	e, owners, _, sink := newEngine(t, 2, 1)

	for want := uint64(0); want < 5; want++ {
		id, err := e.Submit(ctx, owners[int(want)%2], owners[0], want*10, []byte{byte(want)})
		require.NoError(t, err)
		testify.Equal(t, want, id)
	}
	count, err := e.TransactionCount(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(5), count)

	tx, err := e.Transaction(ctx, 3)
	require.NoError(t, err)
	testify.Equal(t, uint64(3), tx.ID)
	testify.Equal(t, uint64(30), tx.Amount)
	testify.Equal(t, []byte{3}, tx.Payload)
	testify.Equal(t, owners[0], tx.Destination)

	events := sink.Events()
	require.Len(t, events, 5)
	testify.Equal(t, wallet.TxSubmittedEvent{
		ID:          1,
		Submitter:   owners[1],
		Destination: owners[0],
		Amount:      10,
		Payload:     []byte{1},
	}, events[1])
}

func TestSubmitInvalidDestination(t *testing.T) {
	ctx := context.Background()
	e, owners, _, sink := newEngine(t, 2, 1)

	_, err := e.Submit(ctx, owners[0], nil, 1, nil)
	assert.IsErr(t, errors.ErrEmpty, err)

	count, err := e.TransactionCount(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(0), count)
	testify.Empty(t, sink.Events())
}

func TestDoubleConfirm(t *testing.T) {
	ctx := context.Background()
	e, owners, _, sink := newEngine(t, 3, 2)

	id, err := e.Submit(ctx, owners[0], owners[2], 1, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[1], id))

	err = e.Confirm(ctx, owners[1], id)
	assert.IsErr(t, wallet.ErrAlreadyConfirmed, err)

	tx, err := e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.Equal(t, uint32(1), tx.ConfirmationCount)
	testify.Equal(t, 1, sink.Count("TxConfirmed"))
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	e, owners, _, sink := newEngine(t, 3, 2)

	id, err := e.Submit(ctx, owners[0], owners[2], 1, nil)
	require.NoError(t, err)

	assert.IsErr(t, wallet.ErrNotConfirmed, e.Revoke(ctx, owners[0], id))

	require.NoError(t, e.Confirm(ctx, owners[0], id))
	require.NoError(t, e.Confirm(ctx, owners[1], id))
	require.NoError(t, e.Revoke(ctx, owners[0], id))

	ok, err := e.IsConfirmed(ctx, id, owners[0])
	require.NoError(t, err)
	testify.False(t, ok)
	confirmations, err := e.Confirmations(ctx, id)
	require.NoError(t, err)
	testify.Equal(t, []custody.Address{owners[1]}, confirmations)

	tx, err := e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.Equal(t, uint32(1), tx.ConfirmationCount)

	// Revoked confirmation can be given again.
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	testify.Equal(t, []string{"TxSubmitted", "TxConfirmed", "TxConfirmed", "TxRevoked", "TxConfirmed"}, sink.Kinds())
	testify.Equal(t, wallet.TxRevokedEvent{Owner: owners[0], ID: id}, sink.Events()[3])
}

func TestExecutedTransactionIsFrozen(t *testing.T) {
	ctx := context.Background()
	e, owners, exec, _ := newEngine(t, 3, 2)

	_, err := e.Deposit(ctx, owners[0], 3)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[2], 1, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	require.NoError(t, e.Confirm(ctx, owners[1], id))
	require.NoError(t, e.Execute(ctx, owners[2], id))

	assert.IsErr(t, wallet.ErrAlreadyExecuted, e.Execute(ctx, owners[0], id))
	assert.IsErr(t, wallet.ErrAlreadyExecuted, e.Revoke(ctx, owners[0], id))
	// Revoking an executed transaction is rejected even without a
	// confirmation to revoke.
	assert.IsErr(t, wallet.ErrAlreadyExecuted, e.Revoke(ctx, owners[2], id))

	tx, err := e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.True(t, tx.Executed)
	testify.Equal(t, uint32(2), tx.ConfirmationCount)
	testify.Equal(t, 1, exec.CallCount())

	// Confirming an executed transaction only extends the history.
	require.NoError(t, e.Confirm(ctx, owners[2], id))
	tx, err = e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.Equal(t, uint32(3), tx.ConfirmationCount)
	assert.IsErr(t, wallet.ErrAlreadyExecuted, e.Execute(ctx, owners[0], id))

	balance, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(2), balance)
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]struct {
		deposit uint64
		amount  uint64
		wantErr *errors.Error
	}{
		"sufficient balance": {
			deposit: 100,
			amount:  60,
		},
		"exact balance": {
			deposit: 60,
			amount:  60,
		},
		"insufficient balance": {
			deposit: 10,
			amount:  60,
			wantErr: wallet.ErrTransferFailed,
		},
		"zero amount": {
			deposit: 0,
			amount:  0,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ctx := context.Background()
			e, owners, _, sink := newEngine(t, 4, 3)

			_, err := e.Deposit(ctx, custodytest.NewAddress(), tc.deposit)
			require.NoError(t, err)
			dest := custodytest.NewAddress()
			id, err := e.Submit(ctx, owners[3], dest, tc.amount, []byte("payload"))
			require.NoError(t, err)
			for _, o := range owners[:3] {
				require.NoError(t, e.Confirm(ctx, o, id))
			}
			sink.Reset()

			err = e.Execute(ctx, owners[3], id)
			assert.IsErr(t, tc.wantErr, err)

			balance, err := e.Balance(ctx)
			require.NoError(t, err)
			tx, err := e.Transaction(ctx, id)
			require.NoError(t, err)
			testify.Equal(t, uint32(3), tx.ConfirmationCount)

			if tc.wantErr == nil {
				testify.Equal(t, tc.deposit-tc.amount, balance)
				testify.True(t, tx.Executed)
				testify.Equal(t, []string{"TxExecuted"}, sink.Kinds())
			} else {
				testify.Equal(t, tc.deposit, balance)
				testify.False(t, tx.Executed)
				testify.Empty(t, sink.Events())
			}
		})
	}
}

func TestExecutorFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	e, owners, exec, _ := newEngine(t, 2, 1)

	_, err := e.Deposit(ctx, owners[0], 50)
	require.NoError(t, err)
	id, err := e.Submit(ctx, owners[0], owners[1], 20, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))

	// The executor withdraws and then fails. The withdrawal must be
	// rolled back together with the executed flag.
	exec.Err = errors.Wrap(errors.ErrInput, "destination rejects")
	err = e.Execute(ctx, owners[0], id)
	assert.IsErr(t, wallet.ErrTransferFailed, err)
	assert.ErrorCode(t, wallet.ErrTransferFailed.ABCICode(), err)

	balance, err := e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(50), balance)
	tx, err := e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.False(t, tx.Executed)

	// Once the executor recovers, the transaction can be executed.
	exec.Err = nil
	require.NoError(t, e.Execute(ctx, owners[0], id))
	balance, err = e.Balance(ctx)
	require.NoError(t, err)
	testify.Equal(t, uint64(30), balance)
}

func TestExecutorPanicRollsBack(t *testing.T) {
	ctx := context.Background()
	db, owners := custodytest.NewWallet(t, 2, 1)
	exec := &custodytest.Executor{
		Hook: func(ctx context.Context, db custody.KVStore) error {
			panic("executor panic")
		},
	}
	sink := &custodytest.Sink{}
	e, err := wallet.NewEngine(db, exec, sink)
	require.NoError(t, err)

	id, err := e.Submit(ctx, owners[0], owners[1], 0, nil)
	require.NoError(t, err)
	require.NoError(t, e.Confirm(ctx, owners[0], id))
	sink.Reset()

	err = e.Execute(ctx, owners[0], id)
	assert.IsErr(t, wallet.ErrTransferFailed, err)

	tx, err := e.Transaction(ctx, id)
	require.NoError(t, err)
	testify.False(t, tx.Executed)
	testify.Empty(t, sink.Events())
}

func TestDepositOverflow(t *testing.T) {
	ctx := context.Background()
	e, owners, _, sink := newEngine(t, 1, 1)

	_, err := e.Deposit(ctx, owners[0], math.MaxUint64-1)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, owners[0], 2)
	assert.IsErr(t, errors.ErrOverflow, err)

	balance, err := e.Deposit(ctx, owners[0], 0)
	require.NoError(t, err)
	testify.Equal(t, uint64(math.MaxUint64-1), balance)
	testify.Equal(t, 2, sink.Count("Deposit"))
	testify.Equal(t, wallet.DepositEvent{From: owners[0], Amount: 0, Balance: math.MaxUint64 - 1}, sink.Events()[1])

	_, err = e.Deposit(ctx, nil, 1)
	assert.IsErr(t, errors.ErrEmpty, err)
}
