package store

import (
	"bytes"

	"github.com/google/btree"
	"github.com/iov-one/custody/errors"
)

// collectRange returns all btree items within [start, end) in ascending
// order. Nil start or end means no limit.
func collectRange(bt *btree.BTree, start, end []byte) []entry {
	var res []entry
	insert := func(item btree.Item) bool {
		res = append(res, item.(entry))
		return true
	}

	if start == nil && end == nil {
		bt.Ascend(insert)
	} else if start == nil { // end != nil
		bt.AscendLessThan(entry{key: end}, insert)
	} else if end == nil { // start != nil
		bt.AscendGreaterOrEqual(entry{key: start}, insert)
	} else { // both != nil
		bt.AscendRange(entry{key: start}, entry{key: end}, insert)
	}
	return res
}

// mergedIterator joins our results with those of the parent,
// taking into consideration overwrites and deletes.
type mergedIterator struct {
	items   []entry
	idx     int
	reverse bool

	// if we are iterating in a cache-wrap (and who isn't),
	// we need to combine this iterator with the parent
	parent     Iterator
	parentDone bool
	hasNext    bool
	nextKey    []byte
	nextValue  []byte
}

var _ Iterator = (*mergedIterator)(nil)

func newMergedIterator(items []entry, parent Iterator, reverse bool) *mergedIterator {
	return &mergedIterator{
		items:   items,
		parent:  parent,
		reverse: reverse,
	}
}

// Next returns the next key/value pair, preferring our data over the
// parent's when both contain the same key. Deleted items are skipped.
func (m *mergedIterator) Next() ([]byte, []byte, error) {
	for {
		if err := m.peekParent(); err != nil {
			return nil, nil, err
		}

		ours := m.idx < len(m.items)
		if !ours && !m.hasNext {
			return nil, nil, errors.ErrIteratorDone
		}

		if !ours {
			return m.takeParent()
		}

		item := m.items[m.idx]
		if m.hasNext {
			cmp := bytes.Compare(item.key, m.nextKey)
			if m.reverse {
				cmp = -cmp
			}
			if cmp > 0 {
				return m.takeParent()
			}
			if cmp == 0 {
				// we overwrite (or delete) the parent value
				m.hasNext = false
			}
		}
		m.idx++

		if !item.deleted {
			return item.key, item.value, nil
		}
	}
}

func (m *mergedIterator) peekParent() error {
	if m.hasNext || m.parentDone {
		return nil
	}
	key, value, err := m.parent.Next()
	if errors.ErrIteratorDone.Is(err) {
		m.parentDone = true
		return nil
	}
	if err != nil {
		return err
	}
	m.hasNext = true
	m.nextKey = key
	m.nextValue = value
	return nil
}

func (m *mergedIterator) takeParent() ([]byte, []byte, error) {
	m.hasNext = false
	return m.nextKey, m.nextValue, nil
}

// Release releases the Iterator.
func (m *mergedIterator) Release() {
	m.parent.Release()
	m.items = nil
}
