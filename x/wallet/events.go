package wallet

import (
	"context"

	"github.com/iov-one/custody"
)

// Event is a notification about a committed state change.
type Event interface {
	// Kind returns the name of the event.
	Kind() string
	// Tags returns key value pairs describing the event, ready to be
	// passed to a logger.
	Tags() []interface{}
}

// DepositEvent is emitted when value was added to the pool.
type DepositEvent struct {
	From    custody.Address `json:"from"`
	Amount  uint64          `json:"amount"`
	Balance uint64          `json:"balance"`
}

func (DepositEvent) Kind() string { return "Deposit" }

func (e DepositEvent) Tags() []interface{} {
	return []interface{}{"from", e.From, "amount", e.Amount, "balance", e.Balance}
}

// TxSubmittedEvent is emitted when a new transaction was added to the
// ledger.
type TxSubmittedEvent struct {
	ID          uint64          `json:"id"`
	Submitter   custody.Address `json:"submitter"`
	Destination custody.Address `json:"destination"`
	Amount      uint64          `json:"amount"`
	Payload     []byte          `json:"payload,omitempty"`
}

func (TxSubmittedEvent) Kind() string { return "TxSubmitted" }

func (e TxSubmittedEvent) Tags() []interface{} {
	return []interface{}{"id", e.ID, "submitter", e.Submitter, "destination", e.Destination, "amount", e.Amount}
}

// TxConfirmedEvent is emitted when an owner confirmed a transaction.
type TxConfirmedEvent struct {
	Owner custody.Address `json:"owner"`
	ID    uint64          `json:"id"`
}

func (TxConfirmedEvent) Kind() string { return "TxConfirmed" }

func (e TxConfirmedEvent) Tags() []interface{} {
	return []interface{}{"owner", e.Owner, "id", e.ID}
}

// TxRevokedEvent is emitted when an owner revoked its confirmation.
type TxRevokedEvent struct {
	Owner custody.Address `json:"owner"`
	ID    uint64          `json:"id"`
}

func (TxRevokedEvent) Kind() string { return "TxRevoked" }

func (e TxRevokedEvent) Tags() []interface{} {
	return []interface{}{"owner", e.Owner, "id", e.ID}
}

// TxExecutedEvent is emitted when a transaction was executed.
type TxExecutedEvent struct {
	Caller custody.Address `json:"caller"`
	ID     uint64          `json:"id"`
}

func (TxExecutedEvent) Kind() string { return "TxExecuted" }

func (e TxExecutedEvent) Tags() []interface{} {
	return []interface{}{"caller", e.Caller, "id", e.ID}
}

// EventSink receives events once the operation that produced them was
// committed.
type EventSink interface {
	Handle(ctx context.Context, e Event)
}

// EventSinkFunc is an adapter to use a function as an EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

func (fn EventSinkFunc) Handle(ctx context.Context, e Event) {
	fn(ctx, e)
}

// LogSink writes every event to the context logger.
type LogSink struct{}

var _ EventSink = LogSink{}

func (LogSink) Handle(ctx context.Context, e Event) {
	custody.GetLogger(ctx).Info(e.Kind(), e.Tags()...)
}
