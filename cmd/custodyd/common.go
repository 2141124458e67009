package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store/iavl"
	"github.com/iov-one/custody/x/cash"
	"github.com/iov-one/custody/x/wallet"
)

// dbName is the name of the database kept in the home directory.
const dbName = "custody"

// env is the state shared by all wallet commands.
type env struct {
	cfg    Config
	db     iavl.CommitStore
	engine *wallet.Engine
	cash   cash.Controller
	ctx    context.Context
}

func (e *env) Close() {
	e.db.Close()
}

// openStore loads the configuration and opens the wallet database.
func openStore(configPath string) (Config, iavl.CommitStore, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return Config{}, iavl.CommitStore{}, err
	}
	if err := os.MkdirAll(cfg.Home, 0700); err != nil {
		return Config{}, iavl.CommitStore{}, errors.Wrapf(errors.ErrDatabase, "home directory: %s", err)
	}
	db, err := iavl.NewCommitStore(cfg.Home, dbName)
	if err != nil {
		return Config{}, iavl.CommitStore{}, err
	}
	if err := db.LoadLatestVersion(); err != nil {
		db.Close()
		return Config{}, iavl.CommitStore{}, err
	}
	return cfg, db, nil
}

// openEnv opens an initialized wallet. Call Close when done.
func openEnv(configPath string) (*env, error) {
	cfg, db, err := openStore(configPath)
	if err != nil {
		return nil, err
	}
	ctrl := cash.NewController(cash.NewBucket())
	engine, err := wallet.NewEngine(db, ctrl, wallet.LogSink{})
	if err != nil {
		db.Close()
		return nil, err
	}
	ctx := custody.WithLogger(context.Background(), cfg.Logger(os.Stderr).With("module", "custody"))
	return &env{
		cfg:    cfg,
		db:     db,
		engine: engine,
		cash:   ctrl,
		ctx:    ctx,
	}, nil
}

// flConfig registers the flag pointing to the configuration file.
func flConfig(fl *flag.FlagSet) *string {
	def := os.Getenv("CUSTODY_CONFIG")
	if def == "" {
		def = "custody.toml"
	}
	return fl.String("config", def, "Path to the TOML configuration file. Defaults to $CUSTODY_CONFIG.")
}

// flAddress returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. This
// function follows Go's flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
//
// The bech32 prefix is known only once the configuration is loaded, so the
// address is decoded by calling Address.
func flAddress(fl *flag.FlagSet, name, defaultVal, usage string) *flagAddress {
	a := &flagAddress{name: name}
	if defaultVal != "" {
		if err := a.Set(defaultVal); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q address flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(a, name, usage)
	return a
}

type flagAddress struct {
	name string
	raw  string
}

func (a *flagAddress) String() string {
	return a.raw
}

func (a *flagAddress) Set(raw string) error {
	if _, err := custody.ParseAddress(raw); err != nil {
		return err
	}
	a.raw = raw
	return nil
}

// Address decodes the flag value. A bech32 encoded address must use given
// prefix. An unset flag returns a nil address.
func (a *flagAddress) Address(prefix string) (custody.Address, error) {
	if a.raw == "" {
		return nil, nil
	}
	addr, err := custody.ParseAddressPrefix(a.raw, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "-%s", a.name)
	}
	return addr, nil
}

// flHex returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided.
func flHex(fl *flag.FlagSet, name, usage string) *[]byte {
	var b flagbyte
	fl.Var(&b, name, usage)
	return (*[]byte)(&b)
}

type flagbyte []byte

func (b flagbyte) String() string {
	return hex.EncodeToString(b)
}

func (b *flagbyte) Set(raw string) error {
	val, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}
	*b = val
	return nil
}

// flagDie terminates the program when a flag is not valid.
func flagDie(description string, args ...interface{}) {
	if len(args) != 0 {
		description = fmt.Sprintf(description, args...)
	}
	fmt.Fprintln(os.Stderr, description)
	os.Exit(2)
}

// requireAddress terminates the program if given address flag was not set.
func requireAddress(a *flagAddress) {
	if a.raw == "" {
		flagDie("-%s flag is required.", a.name)
	}
}

// writeJSON writes an indented JSON representation of given value.
func writeJSON(out io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return errors.Wrap(errors.ErrType, err.Error())
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}

// addressView is how an address is printed.
type addressView struct {
	Hex    custody.Address `json:"hex"`
	Bech32 string          `json:"bech32"`
}

func viewAddress(a custody.Address, prefix string) addressView {
	b, err := a.Bech32(prefix)
	if err != nil {
		b = ""
	}
	return addressView{Hex: a, Bech32: b}
}
