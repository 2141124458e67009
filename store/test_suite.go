package store

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/iov-one/custody/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreConstructor returns a fresh, empty store and a function that
// releases it.
type TestStoreConstructor func() (base CacheableKVStore, cleanup func())

// TestSuite checks that a CacheableKVStore implementation behaves the way
// the wallet relies on: reads see the latest write, a savepoint is invisible
// to its parent until written and iteration merges both layers in key order.
//
// Use it from the package test of every store implementation.
type TestSuite struct {
	makeBase TestStoreConstructor
}

func NewTestSuite(constructor TestStoreConstructor) *TestSuite {
	return &TestSuite{makeBase: constructor}
}

// Run executes all checks as subtests.
func (s *TestSuite) Run(t *testing.T) {
	t.Run("get set delete", s.GetSetDelete)
	t.Run("savepoint", s.Savepoint)
	t.Run("nested savepoint", s.NestedSavepoint)
	t.Run("iterator", s.Iterator)
	t.Run("fuzz iterator", s.FuzzIterator)
}

func (s *TestSuite) GetSetDelete(t *testing.T) {
	db, cleanup := s.makeBase()
	defer cleanup()

	key := []byte("account:pool")
	s.AssertGetHas(t, db, key, nil, false)

	require.NoError(t, db.Set(key, []byte{1}))
	s.AssertGetHas(t, db, key, []byte{1}, true)

	require.NoError(t, db.Set(key, []byte{2}))
	s.AssertGetHas(t, db, key, []byte{2}, true)

	require.NoError(t, db.Delete(key))
	s.AssertGetHas(t, db, key, nil, false)

	// Deleting a missing key is not an error.
	require.NoError(t, db.Delete([]byte("account:missing")))
}

func (s *TestSuite) Savepoint(t *testing.T) {
	cases := map[string]struct {
		parent []Op
		child  []Op
		write  bool
		// Key is what is queried, Value is what is expected. A nil
		// value means the key must not exist.
		wantChild  []Model
		wantParent []Model
	}{
		"discarded savepoint leaves parent untouched": {
			parent:     []Op{SetOp([]byte("a"), []byte("1")), SetOp([]byte("b"), []byte("2"))},
			child:      []Op{SetOp([]byte("a"), []byte("9")), DelOp([]byte("b")), SetOp([]byte("c"), []byte("3"))},
			wantChild:  []Model{Pair([]byte("a"), []byte("9")), Pair([]byte("b"), nil), Pair([]byte("c"), []byte("3"))},
			wantParent: []Model{Pair([]byte("a"), []byte("1")), Pair([]byte("b"), []byte("2")), Pair([]byte("c"), nil)},
		},
		"written savepoint is applied to parent": {
			parent:     []Op{SetOp([]byte("a"), []byte("1")), SetOp([]byte("b"), []byte("2"))},
			child:      []Op{SetOp([]byte("a"), []byte("9")), DelOp([]byte("b")), SetOp([]byte("c"), []byte("3"))},
			write:      true,
			wantChild:  []Model{Pair([]byte("a"), []byte("9")), Pair([]byte("b"), nil), Pair([]byte("c"), []byte("3"))},
			wantParent: []Model{Pair([]byte("a"), []byte("9")), Pair([]byte("b"), nil), Pair([]byte("c"), []byte("3"))},
		},
		"delete then set again": {
			parent:     []Op{SetOp([]byte("a"), []byte("1"))},
			child:      []Op{DelOp([]byte("a")), SetOp([]byte("a"), []byte("2"))},
			write:      true,
			wantChild:  []Model{Pair([]byte("a"), []byte("2"))},
			wantParent: []Model{Pair([]byte("a"), []byte("2"))},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			parent, cleanup := s.makeBase()
			defer cleanup()
			applyOps(t, parent, tc.parent)

			child := parent.CacheWrap()
			applyOps(t, child, tc.child)
			for _, q := range tc.wantChild {
				s.AssertGetHas(t, child, q.Key, q.Value, q.Value != nil)
			}

			if tc.write {
				require.NoError(t, child.Write())
			} else {
				child.Discard()
			}
			for _, q := range tc.wantParent {
				s.AssertGetHas(t, parent, q.Key, q.Value, q.Value != nil)
			}
		})
	}
}

func (s *TestSuite) NestedSavepoint(t *testing.T) {
	base, cleanup := s.makeBase()
	defer cleanup()
	require.NoError(t, base.Set([]byte("balance"), []byte{10}))

	outer := base.CacheWrap()
	require.NoError(t, outer.Set([]byte("balance"), []byte{7}))

	inner := outer.CacheWrap()
	s.AssertGetHas(t, inner, []byte("balance"), []byte{7}, true)
	require.NoError(t, inner.Set([]byte("balance"), []byte{3}))
	require.NoError(t, inner.Set([]byte("executed"), []byte{1}))
	require.NoError(t, inner.Write())

	s.AssertGetHas(t, outer, []byte("balance"), []byte{3}, true)
	s.AssertGetHas(t, outer, []byte("executed"), []byte{1}, true)
	s.AssertGetHas(t, base, []byte("balance"), []byte{10}, true)
	s.AssertGetHas(t, base, []byte("executed"), nil, false)

	require.NoError(t, outer.Write())
	s.AssertGetHas(t, base, []byte("balance"), []byte{3}, true)
	s.AssertGetHas(t, base, []byte("executed"), []byte{1}, true)
}

func (s *TestSuite) Iterator(t *testing.T) {
	var (
		a  = Pair([]byte("confirms:a"), []byte("1"))
		a2 = Pair([]byte("confirms:a"), []byte("2"))
		b  = Pair([]byte("confirms:b"), []byte("1"))
		c  = Pair([]byte("confirms:c"), []byte("1"))
		d  = Pair([]byte("confirms:d"), []byte("1"))
		x  = Pair([]byte("txs:x"), []byte("1"))
	)

	cases := map[string]struct {
		parent  []Op
		child   []Op
		queries []rangeQuery
	}{
		"child only": {
			child: setOps(a, b, x),
			queries: []rangeQuery{
				{nil, nil, false, []Model{a, b, x}},
				{[]byte("confirms:"), []byte("confirms;"), false, []Model{a, b}},
				{nil, nil, true, []Model{x, b, a}},
			},
		},
		"parent only": {
			parent: setOps(a, b, x),
			queries: []rangeQuery{
				{[]byte("confirms:b"), nil, false, []Model{b, x}},
				{nil, []byte("confirms:b"), true, []Model{a}},
			},
		},
		"child overwrites and deletes parent entries": {
			parent: setOps(a, b, c),
			child:  append(setOps(a2, d), DelOp(b.Key)),
			queries: []rangeQuery{
				{nil, nil, false, []Model{a2, c, d}},
				{nil, nil, true, []Model{d, c, a2}},
				{a.Key, c.Key, false, []Model{a2}},
			},
		},
		"everything deleted": {
			parent: setOps(a, b),
			child:  []Op{DelOp(a.Key), DelOp(b.Key)},
			queries: []rangeQuery{
				{nil, nil, false, nil},
				{nil, nil, true, nil},
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			base, cleanup := s.makeBase()
			defer cleanup()
			applyOps(t, base, tc.parent)
			child := base.CacheWrap()
			applyOps(t, child, tc.child)
			for _, q := range tc.queries {
				q.verify(t, child)
			}
		})
	}
}

// FuzzIterator compares iteration over two layers with random content
// against a plain sorted slice.
func (s *TestSuite) FuzzIterator(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	base, cleanup := s.makeBase()
	defer cleanup()

	want := make(map[string][]byte)
	apply := func(db KVStore) {
		for i := 0; i < 60; i++ {
			key := []byte(fmt.Sprintf("k%03d", r.Intn(100)))
			if r.Intn(3) == 0 {
				require.NoError(t, db.Delete(key))
				delete(want, string(key))
				continue
			}
			val := []byte(fmt.Sprintf("v%d", r.Int()))
			require.NoError(t, db.Set(key, val))
			want[string(key)] = val
		}
	}
	apply(base)
	child := base.CacheWrap()
	apply(child)

	expected := make([]Model, 0, len(want))
	for k, v := range want {
		expected = append(expected, Pair([]byte(k), v))
	}
	sort.Slice(expected, func(i, j int) bool {
		return bytes.Compare(expected[i].Key, expected[j].Key) < 0
	})

	rangeOf := func(start, end []byte) []Model {
		var res []Model
		for _, m := range expected {
			if start != nil && bytes.Compare(m.Key, start) < 0 {
				continue
			}
			if end != nil && bytes.Compare(m.Key, end) >= 0 {
				continue
			}
			res = append(res, m)
		}
		return res
	}

	bounds := [][2][]byte{
		{nil, nil},
		{[]byte("k020"), nil},
		{nil, []byte("k070")},
		{[]byte("k033"), []byte("k066")},
	}
	for _, b := range bounds {
		models := rangeOf(b[0], b[1])
		rangeQuery{b[0], b[1], false, models}.verify(t, child)
		rangeQuery{b[0], b[1], true, reversed(models)}.verify(t, child)
	}
}

func (s *TestSuite) AssertGetHas(t testing.TB, kv ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

type rangeQuery struct {
	start    []byte
	end      []byte
	reverse  bool
	expected []Model
}

func (q rangeQuery) verify(t testing.TB, db ReadOnlyKVStore) {
	t.Helper()

	var (
		it  Iterator
		err error
	)
	if q.reverse {
		it, err = db.ReverseIterator(q.start, q.end)
	} else {
		it, err = db.Iterator(q.start, q.end)
	}
	require.NoError(t, err)
	defer it.Release()

	for i, want := range q.expected {
		key, value, err := it.Next()
		require.NoError(t, err)
		if !bytes.Equal(want.Key, key) {
			t.Fatalf("want key %d to be %q, got %q", i, want.Key, key)
		}
		assert.Equal(t, want.Value, value)
	}
	if _, _, err := it.Next(); !errors.ErrIteratorDone.Is(err) {
		t.Fatalf("want iterator to be done, got %+v", err)
	}
}

func applyOps(t testing.TB, db SetDeleter, ops []Op) {
	t.Helper()
	for _, op := range ops {
		require.NoError(t, op.Apply(db))
	}
}

func setOps(ms ...Model) []Op {
	res := make([]Op, len(ms))
	for i, m := range ms {
		res[i] = SetOp(m.Key, m.Value)
	}
	return res
}

func reversed(models []Model) []Model {
	res := make([]Model, len(models))
	for i, m := range models {
		res[len(models)-1-i] = m
	}
	return res
}
