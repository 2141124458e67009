package wallet

import "github.com/iov-one/custody/errors"

// wallet takes 1100-1107
var (
	// ErrConfiguration is returned when the owner registry cannot be
	// created or loaded.
	ErrConfiguration = errors.Register(1100, "invalid configuration")

	// ErrNotOwner is returned when the caller is not a registered owner.
	ErrNotOwner = errors.Register(1101, "not owner")

	// ErrTxNotFound is returned when a transaction with given ID does not
	// exist.
	ErrTxNotFound = errors.Register(1102, "tx does not exist")

	// ErrAlreadyConfirmed is returned when an owner confirms the same
	// transaction for the second time.
	ErrAlreadyConfirmed = errors.Register(1103, "tx already confirmed")

	// ErrNotConfirmed is returned when an owner revokes a confirmation it
	// never gave.
	ErrNotConfirmed = errors.Register(1104, "tx not confirmed")

	// ErrAlreadyExecuted is returned for any change of an executed
	// transaction.
	ErrAlreadyExecuted = errors.Register(1105, "tx already executed")

	// ErrInsufficientConfirmations is returned when a transaction is
	// executed before it collected the required number of confirmations.
	ErrInsufficientConfirmations = errors.Register(1106, "confirmations < required")

	// ErrTransferFailed is returned when the transfer executor failed.
	ErrTransferFailed = errors.Register(1107, "tx failed")
)
