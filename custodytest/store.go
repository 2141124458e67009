package custodytest

import (
	"testing"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/store"
	"github.com/iov-one/custody/x/wallet"
)

// NewWallet returns an in memory store initialized with a registry of n
// new owners and given threshold. Owners are returned in registration
// order.
func NewWallet(t testing.TB, n, threshold int) (custody.CacheableKVStore, []custody.Address) {
	t.Helper()

	owners := NewAddresses(n)
	registry, err := wallet.NewRegistry(owners, threshold)
	if err != nil {
		t.Fatalf("cannot create registry: %+v", err)
	}
	db := store.MemStore()
	if err := wallet.InitGenesis(db, registry); err != nil {
		t.Fatalf("cannot initialize: %+v", err)
	}
	return db, owners
}
