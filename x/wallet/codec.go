package wallet

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// schemaVersion is set on every stored model. It also guarantees that the
// serialized form of a model is never empty.
const schemaVersion = 1

// Registry is the set of owners and the number of confirmations required to
// execute a transaction. A registry is immutable once created.
type Registry struct {
	Schema    uint32            `protobuf:"varint,1,opt,name=schema,proto3" json:"-"`
	Owners    []custody.Address `protobuf:"bytes,2,rep,name=owners,proto3,casttype=github.com/iov-one/custody.Address" json:"owners"`
	Threshold uint32            `protobuf:"varint,3,opt,name=threshold,proto3" json:"threshold"`
}

// Transaction is a transfer proposed by one of the owners.
type Transaction struct {
	Schema            uint32          `protobuf:"varint,1,opt,name=schema,proto3" json:"-"`
	ID                uint64          `protobuf:"varint,2,opt,name=id,proto3" json:"id"`
	Destination       custody.Address `protobuf:"bytes,3,opt,name=destination,proto3,casttype=github.com/iov-one/custody.Address" json:"destination"`
	Amount            uint64          `protobuf:"varint,4,opt,name=amount,proto3" json:"amount"`
	Payload           []byte          `protobuf:"bytes,5,opt,name=payload,proto3" json:"payload,omitempty"`
	Executed          bool            `protobuf:"varint,6,opt,name=executed,proto3" json:"executed"`
	ConfirmationCount uint32          `protobuf:"varint,7,opt,name=confirmation_count,json=confirmationCount,proto3" json:"confirmation_count"`
}

// Confirmation is stored for every owner that confirmed a transaction.
type Confirmation struct {
	Schema uint32          `protobuf:"varint,1,opt,name=schema,proto3" json:"-"`
	Owner  custody.Address `protobuf:"bytes,2,opt,name=owner,proto3,casttype=github.com/iov-one/custody.Address" json:"owner"`
}

// Account holds the balance of the value pool.
type Account struct {
	Schema  uint32 `protobuf:"varint,1,opt,name=schema,proto3" json:"-"`
	Balance uint64 `protobuf:"varint,2,opt,name=balance,proto3" json:"balance"`
}

// Each model is serialized through a message type that shares its layout but
// not its methods. The proto package would otherwise call back into Marshal.
type (
	registryMsg     Registry
	transactionMsg  Transaction
	confirmationMsg Confirmation
	accountMsg      Account
)

func (m *registryMsg) Reset()         { *m = registryMsg{} }
func (m *registryMsg) String() string { return proto.CompactTextString(m) }
func (*registryMsg) ProtoMessage()    {}

func (m *transactionMsg) Reset()         { *m = transactionMsg{} }
func (m *transactionMsg) String() string { return proto.CompactTextString(m) }
func (*transactionMsg) ProtoMessage()    {}

func (m *confirmationMsg) Reset()         { *m = confirmationMsg{} }
func (m *confirmationMsg) String() string { return proto.CompactTextString(m) }
func (*confirmationMsg) ProtoMessage()    {}

func (m *accountMsg) Reset()         { *m = accountMsg{} }
func (m *accountMsg) String() string { return proto.CompactTextString(m) }
func (*accountMsg) ProtoMessage()    {}

func marshal(m proto.Message) ([]byte, error) {
	bz, err := proto.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrModel, err.Error())
	}
	return bz, nil
}

func unmarshal(bz []byte, m proto.Message) error {
	if err := proto.Unmarshal(bz, m); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	return nil
}

func (r *Registry) Marshal() ([]byte, error)  { return marshal((*registryMsg)(r)) }
func (r *Registry) Unmarshal(bz []byte) error { return unmarshal(bz, (*registryMsg)(r)) }

func (t *Transaction) Marshal() ([]byte, error)  { return marshal((*transactionMsg)(t)) }
func (t *Transaction) Unmarshal(bz []byte) error { return unmarshal(bz, (*transactionMsg)(t)) }

func (c *Confirmation) Marshal() ([]byte, error)  { return marshal((*confirmationMsg)(c)) }
func (c *Confirmation) Unmarshal(bz []byte) error { return unmarshal(bz, (*confirmationMsg)(c)) }

func (a *Account) Marshal() ([]byte, error)  { return marshal((*accountMsg)(a)) }
func (a *Account) Unmarshal(bz []byte) error { return unmarshal(bz, (*accountMsg)(a)) }

func validateSchema(s uint32) error {
	if s != schemaVersion {
		return errors.Field("Schema", errors.ErrModel, "unsupported schema version %d", s)
	}
	return nil
}
