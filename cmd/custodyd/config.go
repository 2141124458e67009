package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/x/wallet"
	"github.com/tendermint/tendermint/libs/log"
)

// Config is the daemon configuration.
type Config struct {
	// Home is the directory where the wallet database is kept.
	Home string
	// LogLevel is one of debug, info, error or none.
	LogLevel string
	// Bech32Prefix is the human readable part of bech32 addresses, both
	// printed and accepted.
	Bech32Prefix string
	// Owners are the wallet owners, hex or bech32 encoded, in registration
	// order. Bech32 addresses must use Bech32Prefix. Used by init only.
	Owners []string
	// Threshold is the number of confirmations required to execute a
	// transaction. Used by init only.
	Threshold int
}

// DefaultConfig returns the configuration used for any value not present in
// the configuration file.
func DefaultConfig() Config {
	return Config{
		Home:         "./custody-data",
		LogLevel:     "info",
		Bech32Prefix: "cust",
	}
}

type fileConfig struct {
	Home         string   `toml:"home"`
	LogLevel     string   `toml:"log_level"`
	Bech32Prefix string   `toml:"bech32_prefix"`
	Owners       []string `toml:"owners"`
	Threshold    int      `toml:"threshold"`
}

// loadConfig reads a TOML configuration file. Values that are not defined in
// the file are taken from DefaultConfig.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrInput, "load config: %s", err)
	}

	if meta.IsDefined("home") {
		cfg.Home = strings.TrimSpace(raw.Home)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("bech32_prefix") {
		cfg.Bech32Prefix = strings.TrimSpace(raw.Bech32Prefix)
	}
	if meta.IsDefined("owners") {
		cfg.Owners = normalizeOwners(raw.Owners)
	}
	if meta.IsDefined("threshold") {
		cfg.Threshold = raw.Threshold
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Wrapf(errors.ErrInput, "unknown config keys: %v", undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalizeOwners(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if v := strings.TrimSpace(o); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate returns all problems of the configuration that do not depend on
// the wallet registry.
func (c Config) Validate() error {
	var errs error
	if c.Home == "" {
		errs = errors.AppendField(errs, "Home", errors.ErrEmpty)
	}
	if _, err := log.AllowLevel(c.LogLevel); err != nil {
		errs = errors.AppendField(errs, "LogLevel", errors.Wrap(errors.ErrInput, err.Error()))
	}
	if c.Bech32Prefix == "" {
		errs = errors.AppendField(errs, "Bech32Prefix", errors.ErrEmpty)
	}
	return errs
}

// Registry parses the configured owners and returns a validated registry.
func (c Config) Registry() (*wallet.Registry, error) {
	var errs error
	owners := make([]custody.Address, 0, len(c.Owners))
	for i, enc := range c.Owners {
		addr, err := custody.ParseAddressPrefix(enc, c.Bech32Prefix)
		if err != nil {
			errs = errors.AppendField(errs, fmt.Sprintf("Owners.%d", i), errors.Wrap(wallet.ErrConfiguration, err.Error()))
			continue
		}
		owners = append(owners, addr)
	}
	if errs != nil {
		return nil, errs
	}
	return wallet.NewRegistry(owners, c.Threshold)
}

// Logger returns a logger writing to given output, filtered by the
// configured level.
func (c Config) Logger(out io.Writer) log.Logger {
	logger := log.NewTMLogger(log.NewSyncWriter(out))
	if opt, err := log.AllowLevel(c.LogLevel); err == nil {
		logger = log.NewFilter(logger, opt)
	}
	return logger
}
