package custodytest

import (
	"context"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/x/wallet"
)

// Transfer is a single call received by the Executor.
type Transfer struct {
	Destination custody.Address
	Amount      uint64
	Payload     []byte
}

// Executor is a transfer executor mock. It withdraws the amount from the
// vault and records the call.
//
// Set Err to fail every transfer after the withdrawal. Set Hook to run
// custom code, for example calls back into the engine, before the
// withdrawal. A Hook error fails the transfer.
type Executor struct {
	Err  error
	Hook func(ctx context.Context, db custody.KVStore) error

	calls     int
	transfers []Transfer
}

var _ wallet.TransferExecutor = (*Executor)(nil)

func (e *Executor) Transfer(ctx context.Context, db custody.KVStore, from wallet.Vault, destination custody.Address, amount uint64, payload []byte) error {
	e.calls++
	if e.Hook != nil {
		if err := e.Hook(ctx, db); err != nil {
			return err
		}
	}
	if err := from.Withdraw(amount); err != nil {
		return err
	}
	if e.Err != nil {
		return e.Err
	}
	e.transfers = append(e.transfers, Transfer{
		Destination: destination,
		Amount:      amount,
		Payload:     payload,
	})
	return nil
}

// CallCount returns the number of Transfer calls, including failed ones.
func (e *Executor) CallCount() int {
	return e.calls
}

// Transfers returns all successful transfers.
func (e *Executor) Transfers() []Transfer {
	return e.transfers
}
