package orm

import (
	"testing"

	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketName(t *testing.T) {
	assert.Panics(t, func() {
		// An invalid bucket name must crash.
		NewBucket("l33t", newCounter("", 0))
	})
}

func TestBucketCannotSaveInvalid(t *testing.T) {
	b := NewBucket("mybucket", newCounter("", 0))
	db := store.MemStore()

	if err := b.Save(db, newCounter("mykey", -999)); !errors.ErrState.Is(err) {
		t.Fatalf("invalid object must not save: %+v", err)
	}
	if err := b.Save(db, newCounter("", 1)); !errors.ErrEmpty.Is(err) {
		t.Fatalf("object without key must not save: %+v", err)
	}
}

func TestBucketGetSave(t *testing.T) {
	b := NewBucket("mybucket", newCounter("", 0))
	db := store.MemStore()

	obj, err := b.Get(db, []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, obj)

	require.NoError(t, b.Save(db, newCounter("one", 848)))

	obj, err = b.Get(db, []byte("one"))
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, []byte("one"), obj.Key())
	assert.Equal(t, int64(848), obj.Value().(*counter).Count)

	has, err := b.Has(db, []byte("one"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, b.Delete(db, []byte("one")))
	obj, err = b.Get(db, []byte("one"))
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestBucketNameCollision(t *testing.T) {
	b1 := NewBucket("first", newCounter("", 0))
	b2 := NewBucket("second", newCounter("", 0))
	db := store.MemStore()

	require.NoError(t, b1.Save(db, newCounter("key", 1)))
	require.NoError(t, b2.Save(db, newCounter("key", 2)))

	o1, err := b1.Get(db, []byte("key"))
	require.NoError(t, err)
	o2, err := b2.Get(db, []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), o1.Value().(*counter).Count)
	assert.Equal(t, int64(2), o2.Value().(*counter).Count)
}

func TestBucketParseInvalid(t *testing.T) {
	b := NewBucket("mybucket", newCounter("", 0))
	if _, err := b.Parse([]byte("x"), []byte("not eight")); !errors.ErrModel.Is(err) {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestBucketPrefixScan(t *testing.T) {
	b := NewBucket("mybucket", newCounter("", 0))
	other := NewBucket("mybuckets", newCounter("", 0))
	db := store.MemStore()

	for i, k := range []string{"a1", "a2", "b1", "a3"} {
		require.NoError(t, b.Save(db, newCounter(k, int64(i))))
	}
	require.NoError(t, other.Save(db, newCounter("a9", 9)))

	cases := map[string]struct {
		prefix  []byte
		reverse bool
		want    []string
	}{
		"all":            {prefix: nil, want: []string{"a1", "a2", "a3", "b1"}},
		"prefix":         {prefix: []byte("a"), want: []string{"a1", "a2", "a3"}},
		"prefix reverse": {prefix: []byte("a"), reverse: true, want: []string{"a3", "a2", "a1"}},
		"no match":       {prefix: []byte("c"), want: nil},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			objs, err := b.PrefixScan(db, tc.prefix, tc.reverse)
			require.NoError(t, err)
			var keys []string
			for _, o := range objs {
				keys = append(keys, string(o.Key()))
			}
			assert.Equal(t, tc.want, keys)
		})
	}
}

func TestPrefixRangeEnd(t *testing.T) {
	cases := map[string]struct {
		prefix []byte
		want   []byte
	}{
		"nil":        {prefix: nil, want: nil},
		"simple":     {prefix: []byte{1, 2}, want: []byte{1, 3}},
		"carry":      {prefix: []byte{1, 255}, want: []byte{2}},
		"all ff":     {prefix: []byte{255, 255}, want: nil},
		"bucket key": {prefix: []byte("foo:"), want: []byte("foo;")},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, tc.want, prefixRangeEnd(tc.prefix))
		})
	}
}
