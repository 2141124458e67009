package orm

import (
	"reflect"

	"github.com/iov-one/custody/errors"
)

var _ Object = (*SimpleObj)(nil)

// SimpleObj is a model together with the key it is stored under.
type SimpleObj struct {
	key   []byte
	value Model
}

func NewSimpleObj(key []byte, value Model) *SimpleObj {
	return &SimpleObj{key: key, value: value}
}

func (o SimpleObj) Value() Model {
	return o.value
}

func (o SimpleObj) Key() []byte {
	return o.key
}

// Validate requires both the key and the value and returns the value
// validation result.
func (o SimpleObj) Validate() error {
	switch {
	case len(o.key) == 0:
		return errors.Field("Key", errors.ErrEmpty, "missing key")
	case o.value == nil:
		return errors.Field("Value", errors.ErrEmpty, "missing value")
	}
	return errors.Field("Value", o.value.Validate(), "invalid value")
}

func (o *SimpleObj) SetKey(key []byte) {
	o.key = key
}

// Clone returns an object holding a zero value of the same model type. The
// key is copied.
func (o *SimpleObj) Clone() Object {
	value := reflect.New(reflect.TypeOf(o.value).Elem()).Interface().(Model)
	res := &SimpleObj{value: value}
	if len(o.key) > 0 {
		res.key = append([]byte(nil), o.key...)
	}
	return res
}
