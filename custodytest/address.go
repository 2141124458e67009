package custodytest

import (
	"encoding/binary"
	"sync/atomic"
	"testing"

	"github.com/iov-one/custody"
)

var addressSeq uint64

// NewAddress returns a new, unique, valid address.
func NewAddress() custody.Address {
	n := atomic.AddUint64(&addressSeq, 1)
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, n)
	return custody.NewAddress(append([]byte("custodytest/"), raw...))
}

// NewAddresses returns n unique, valid addresses.
func NewAddresses(n int) []custody.Address {
	res := make([]custody.Address, n)
	for i := range res {
		res[i] = NewAddress()
	}
	return res
}

// ParseAddress takes an address in a human readable format and returns its
// binary representation. This function is a test helper that is using
// custody.ParseAddress function functionality.
func ParseAddress(t testing.TB, encodedAddress string) custody.Address {
	t.Helper()

	addr, err := custody.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}
