package custody

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/custody/errors"
	"golang.org/x/crypto/blake2b"
)

// AddressLength is the length of all addresses.
const AddressLength = 20

// Address identifies an owner, a depositor or a transfer destination.
//
// Callers reach the core with an Address that was already authenticated by
// the host environment.
type Address []byte

// NewAddress hashes and truncates given data into an address. Use it to
// derive a stable address from any identifying value, for example a public
// key or a name.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	h := blake2b.Sum256(data)
	return h[:AddressLength]
}

// Equals checks if two addresses are the same
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// IsZero returns true if the address is empty or all bytes are zero.
func (a Address) IsZero() bool {
	for _, b := range a {
		if b != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy of the address that does not share memory with the
// original.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	c := make(Address, len(a))
	copy(c, a)
	return c
}

// Validate returns an error if the address is not the valid size or it is
// the zero address.
func (a Address) Validate() error {
	if len(a) == 0 {
		return errors.Wrap(errors.ErrEmpty, "address")
	}
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address length %d", len(a))
	}
	if a.IsZero() {
		return errors.Wrap(errors.ErrInput, "zero address")
	}
	return nil
}

// String returns a human readable, hex encoded representation.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return strings.ToUpper(hex.EncodeToString(a))
}

// Bech32 returns the bech32 representation of this address using given
// human readable part.
func (a Address) Bech32(hrp string) (string, error) {
	data, err := bech32.ConvertBits(a, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "convert bits")
	}
	enc, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", errors.Wrap(err, "bech32")
	}
	return enc, nil
}

// MarshalJSON provides a hex representation for JSON,
// to override the standard base64 []byte encoding
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(err, "cannot decode json")
	}
	if enc == "" || enc == "(nil)" {
		*a = nil
		return nil
	}
	addr, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Set updates the address value. This implements the flag.Value interface
// so an address can be passed as a command line flag.
func (a *Address) Set(enc string) error {
	addr, err := ParseAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ParseAddress accepts address in a human readable format and decodes it.
//
// An address can be hex encoded, optionally prefixed with "hex:", or bech32
// encoded, optionally prefixed with "bech32:". A string that is not valid hex
// is decoded as bech32. The result is validated. Any bech32 human readable
// part is accepted.
func ParseAddress(enc string) (Address, error) {
	return ParseAddressPrefix(enc, "")
}

// ParseAddressPrefix works like ParseAddress but a bech32 encoded address
// must use given human readable part. An empty hrp accepts any.
func ParseAddressPrefix(enc, hrp string) (Address, error) {
	format := "auto"
	if chunks := strings.SplitN(enc, ":", 2); len(chunks) == 2 {
		format, enc = chunks[0], chunks[1]
	}

	var (
		addr Address
		err  error
	)
	switch format {
	case "hex":
		addr, err = hex.DecodeString(enc)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInput, "cannot decode hex")
		}
	case "bech32":
		addr, err = decodeBech32(enc, hrp)
	case "auto":
		if raw, herr := hex.DecodeString(enc); herr == nil {
			addr = raw
		} else {
			addr, err = decodeBech32(enc, hrp)
		}
	default:
		return nil, errors.Wrapf(errors.ErrType, "unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}

func decodeBech32(enc, hrp string) (Address, error) {
	prefix, data, err := bech32.Decode(enc)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "deserialize bech32: %s", err)
	}
	if hrp != "" && !strings.EqualFold(prefix, hrp) {
		return nil, errors.Wrapf(errors.ErrInput, "bech32 prefix %q, want %q", prefix, hrp)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "convert bits: %s", err)
	}
	return payload, nil
}
