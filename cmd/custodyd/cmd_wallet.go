package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/wallet"
)

func cmdInit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Create a new wallet database using the owners and threshold declared in the
configuration file. A database can be initialized only once.
		`)
		fl.PrintDefaults()
	}
	configFl := flConfig(fl)
	fl.Parse(args)

	cfg, db, err := openStore(*configFl)
	if err != nil {
		return err
	}
	defer db.Close()

	registry, err := cfg.Registry()
	if err != nil {
		return errors.Wrap(err, "registry")
	}
	if err := wallet.InitGenesis(db, registry); err != nil {
		return err
	}
	id, err := db.Commit()
	if err != nil {
		return err
	}
	return writeJSON(output, struct {
		Version int64  `json:"version"`
		Hash    string `json:"hash"`
	}{
		Version: id.Version,
		Hash:    fmt.Sprintf("%X", id.Hash),
	})
}

func cmdDeposit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Add value to the wallet pool. Anyone can deposit.
		`)
		fl.PrintDefaults()
	}
	var (
		configFl = flConfig(fl)
		fromFl   = flAddress(fl, "from", "", "Address of the depositor.")
		amountFl = fl.Uint64("amount", 0, "Amount to deposit, in the smallest unit.")
	)
	fl.Parse(args)
	requireAddress(fromFl)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()

	from, err := fromFl.Address(e.cfg.Bech32Prefix)
	if err != nil {
		return err
	}
	balance, err := e.engine.Deposit(e.ctx, from, *amountFl)
	if err != nil {
		return err
	}
	return writeJSON(output, wallet.DepositEvent{From: from, Amount: *amountFl, Balance: balance})
}

func cmdSubmit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Propose a transfer from the wallet pool. Only an owner can submit a transfer.
Submitting does not confirm the transfer.
		`)
		fl.PrintDefaults()
	}
	var (
		configFl  = flConfig(fl)
		asFl      = flAddress(fl, "as", "", "Address of the owner submitting the transfer.")
		dstFl     = flAddress(fl, "dst", "", "Destination address of the transfer.")
		amountFl  = fl.Uint64("amount", 0, "Amount to transfer, in the smallest unit.")
		payloadFl = flHex(fl, "payload", "Optional hex encoded data attached to the transfer.")
	)
	fl.Parse(args)
	requireAddress(asFl)
	requireAddress(dstFl)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()

	caller, err := asFl.Address(e.cfg.Bech32Prefix)
	if err != nil {
		return err
	}
	dst, err := dstFl.Address(e.cfg.Bech32Prefix)
	if err != nil {
		return err
	}
	id, err := e.engine.Submit(e.ctx, caller, dst, *amountFl, *payloadFl)
	if err != nil {
		return err
	}
	tx, err := e.engine.Transaction(e.ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(output, tx)
}

func cmdConfirm(input io.Reader, output io.Writer, args []string) error {
	return ownerOperation(output, args, "confirm", `
Confirm a transaction. An owner can confirm a transaction only once.
	`, (*wallet.Engine).Confirm)
}

func cmdRevoke(input io.Reader, output io.Writer, args []string) error {
	return ownerOperation(output, args, "revoke", `
Revoke a confirmation of a transaction that was not executed yet.
	`, (*wallet.Engine).Revoke)
}

func cmdExecute(input io.Reader, output io.Writer, args []string) error {
	return ownerOperation(output, args, "execute", `
Execute a transaction that collected enough confirmations. Any owner can
execute a transaction. Execution moves the value to the destination balance.
	`, (*wallet.Engine).Execute)
}

type ownerOp func(e *wallet.Engine, ctx context.Context, caller custody.Address, id uint64) error

// ownerOperation runs a single operation of an owner on a transaction and
// prints the transaction state afterwards.
func ownerOperation(output io.Writer, args []string, name, usage string, op ownerOp) error {
	fl := flag.NewFlagSet(name, flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		fl.PrintDefaults()
	}
	var (
		configFl = flConfig(fl)
		asFl     = flAddress(fl, "as", "", "Address of the owner.")
		idFl     = fl.Uint64("tx", 0, "ID of the transaction.")
	)
	fl.Parse(args)
	requireAddress(asFl)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()

	caller, err := asFl.Address(e.cfg.Bech32Prefix)
	if err != nil {
		return err
	}
	if err := op(e.engine, e.ctx, caller, *idFl); err != nil {
		return err
	}
	return showTransaction(e, output, *idFl)
}

func cmdShow(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print a transaction together with the owners that confirmed it.
		`)
		fl.PrintDefaults()
	}
	var (
		configFl = flConfig(fl)
		idFl     = fl.Uint64("tx", 0, "ID of the transaction.")
	)
	fl.Parse(args)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()
	return showTransaction(e, output, *idFl)
}

func showTransaction(e *env, output io.Writer, id uint64) error {
	tx, err := e.engine.Transaction(e.ctx, id)
	if err != nil {
		return err
	}
	confirmations, err := e.engine.Confirmations(e.ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(output, struct {
		*wallet.Transaction
		ConfirmedBy []custody.Address `json:"confirmed_by"`
	}{
		Transaction: tx,
		ConfirmedBy: confirmations,
	})
}

func cmdOwners(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print the wallet owners in registration order and the number of required
confirmations.
		`)
		fl.PrintDefaults()
	}
	configFl := flConfig(fl)
	fl.Parse(args)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()

	owners := e.engine.Owners()
	views := make([]addressView, len(owners))
	for i, o := range owners {
		views[i] = viewAddress(o, e.cfg.Bech32Prefix)
	}
	return writeJSON(output, struct {
		Owners    []addressView `json:"owners"`
		Threshold uint32        `json:"threshold"`
	}{
		Owners:    views,
		Threshold: e.engine.Threshold(),
	})
}

func cmdCount(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print the number of submitted transactions.
		`)
		fl.PrintDefaults()
	}
	configFl := flConfig(fl)
	fl.Parse(args)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.engine.TransactionCount(e.ctx)
	if err != nil {
		return err
	}
	return writeJSON(output, struct {
		Count uint64 `json:"count"`
	}{Count: n})
}

func cmdBalance(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print the wallet pool balance. When an address is given, print the balance
that address received from executed transfers instead.
		`)
		fl.PrintDefaults()
	}
	var (
		configFl = flConfig(fl)
		addrFl   = flAddress(fl, "addr", "", "Optional address to print the received balance of.")
	)
	fl.Parse(args)

	e, err := openEnv(*configFl)
	if err != nil {
		return err
	}
	defer e.Close()

	addr, err := addrFl.Address(e.cfg.Bech32Prefix)
	if err != nil {
		return err
	}
	var balance uint64
	if len(addr) == 0 {
		balance, err = e.engine.Balance(e.ctx)
	} else {
		balance, err = e.cash.Balance(e.db, addr)
	}
	if err != nil {
		return err
	}
	return writeJSON(output, struct {
		Balance uint64 `json:"balance"`
	}{Balance: balance})
}
