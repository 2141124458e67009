package cash

import (
	"math"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
)

// BucketName is where we store the balances
const BucketName = "cash"

// Set is the balance stored for a single address.
type Set struct {
	Schema uint32 `protobuf:"varint,1,opt,name=schema,proto3" json:"-"`
	Amount uint64 `protobuf:"varint,2,opt,name=amount,proto3" json:"amount"`
}

// setMsg is the wire form of a Set.
type setMsg Set

func (m *setMsg) Reset()         { *m = setMsg{} }
func (m *setMsg) String() string { return proto.CompactTextString(m) }
func (*setMsg) ProtoMessage()    {}

var _ orm.Model = (*Set)(nil)

func (s *Set) Marshal() ([]byte, error) {
	bz, err := proto.Marshal((*setMsg)(s))
	if err != nil {
		return nil, errors.Wrap(errors.ErrModel, err.Error())
	}
	return bz, nil
}

func (s *Set) Unmarshal(bz []byte) error {
	if err := proto.Unmarshal(bz, (*setMsg)(s)); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	return nil
}

// Validate requires a known schema version.
func (s *Set) Validate() error {
	if s.Schema != 1 {
		return errors.Field("Schema", errors.ErrModel, "unsupported schema version %d", s.Schema)
	}
	return nil
}

// Add increases the balance. It fails if the balance would overflow.
func (s *Set) Add(amount uint64) error {
	if amount > math.MaxUint64-s.Amount {
		return errors.Wrapf(errors.ErrOverflow, "balance %d, add %d", s.Amount, amount)
	}
	s.Amount += amount
	return nil
}

// Bucket is a type-safe wrapper around orm.Bucket
type Bucket struct {
	orm.Bucket
}

// NewBucket initializes a Bucket with default name
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, orm.NewSimpleObj(nil, new(Set))),
	}
}

// GetOrCreate returns the balance of given address. An address that never
// received anything has an empty balance.
func (b Bucket) GetOrCreate(db custody.ReadOnlyKVStore, addr custody.Address) (*Set, error) {
	obj, err := b.Get(db, addr)
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if obj == nil {
		return &Set{Schema: 1}, nil
	}
	s, ok := obj.Value().(*Set)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return s, nil
}

// Store saves the balance of given address.
func (b Bucket) Store(db custody.KVStore, addr custody.Address, s *Set) error {
	return b.Save(db, orm.NewSimpleObj(addr, s))
}
