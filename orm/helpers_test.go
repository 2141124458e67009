package orm

import (
	"encoding/binary"

	"github.com/iov-one/custody/errors"
)

// counter is a minimal model used to exercise buckets.
type counter struct {
	Count int64
}

var _ Model = (*counter)(nil)

func (c *counter) Marshal() ([]byte, error) {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, uint64(c.Count))
	return bz, nil
}

func (c *counter) Unmarshal(bz []byte) error {
	if len(bz) != 8 {
		return errors.Wrap(errors.ErrModel, "counter must be 8 bytes")
	}
	c.Count = int64(binary.BigEndian.Uint64(bz))
	return nil
}

func (c *counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrState, "negative count")
	}
	return nil
}

func newCounter(key string, count int64) *SimpleObj {
	return NewSimpleObj([]byte(key), &counter{Count: count})
}
