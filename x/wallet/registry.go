package wallet

import (
	"fmt"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/orm"
)

const (
	// RegistryBucketName is where the owner registry is stored.
	RegistryBucketName = "registry"

	registryKey = "owners"
)

var _ orm.Model = (*Registry)(nil)

// NewRegistry returns a registry of given owners. Owners are kept in the
// order they were given. All configuration problems are reported together.
func NewRegistry(owners []custody.Address, requiredConfirmations int) (*Registry, error) {
	r := &Registry{
		Schema: schemaVersion,
		Owners: make([]custody.Address, len(owners)),
	}
	// An out of range value is left as zero and reported by Validate.
	if requiredConfirmations > 0 && requiredConfirmations <= len(owners) {
		r.Threshold = uint32(requiredConfirmations)
	}
	for i, o := range owners {
		r.Owners[i] = o.Clone()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate ensures the registry is not empty, all owners are unique non-zero
// addresses and the threshold can be reached.
func (r *Registry) Validate() error {
	var errs error
	if err := validateSchema(r.Schema); err != nil {
		errs = errors.Append(errs, err)
	}
	if len(r.Owners) == 0 {
		errs = errors.AppendField(errs, "Owners", errors.Wrap(ErrConfiguration, "owners required"))
	}
	if r.Threshold == 0 || int(r.Threshold) > len(r.Owners) {
		errs = errors.AppendField(errs, "Threshold",
			errors.Wrapf(ErrConfiguration, "invalid required number of owners: %d of %d", r.Threshold, len(r.Owners)))
	}
	seen := make(map[string]struct{}, len(r.Owners))
	for i, o := range r.Owners {
		field := fmt.Sprintf("Owners.%d", i)
		if err := o.Validate(); err != nil {
			errs = errors.AppendField(errs, field, errors.Wrapf(ErrConfiguration, "invalid owner: %s", err))
			continue
		}
		if _, ok := seen[string(o)]; ok {
			errs = errors.AppendField(errs, field, errors.Wrapf(ErrConfiguration, "owner is not unique: %s", o))
			continue
		}
		seen[string(o)] = struct{}{}
	}
	return errs
}

// IsOwner returns true if given address is one of the owners.
func (r *Registry) IsOwner(addr custody.Address) bool {
	return r.index(addr) >= 0
}

// index returns the registration position of given owner or -1.
func (r *Registry) index(addr custody.Address) int {
	if len(addr) == 0 {
		return -1
	}
	for i, o := range r.Owners {
		if o.Equals(addr) {
			return i
		}
	}
	return -1
}

// OwnerList returns a copy of all owners in registration order.
func (r *Registry) OwnerList() []custody.Address {
	res := make([]custody.Address, len(r.Owners))
	for i, o := range r.Owners {
		res[i] = o.Clone()
	}
	return res
}

// RequiredConfirmations returns the number of distinct owner confirmations
// required to execute a transaction.
func (r *Registry) RequiredConfirmations() uint32 {
	return r.Threshold
}

func (r *Registry) clone() *Registry {
	return &Registry{
		Schema:    r.Schema,
		Owners:    r.OwnerList(),
		Threshold: r.Threshold,
	}
}

// registryBucket stores a single registry.
type registryBucket struct {
	orm.Bucket
}

func newRegistryBucket() registryBucket {
	return registryBucket{
		Bucket: orm.NewBucket(RegistryBucketName, orm.NewSimpleObj(nil, new(Registry))),
	}
}

// InitGenesis stores given registry. A store can be initialized only once.
func InitGenesis(db custody.KVStore, r *Registry) error {
	if r == nil {
		return errors.Wrap(ErrConfiguration, "registry required")
	}
	if err := r.Validate(); err != nil {
		return err
	}
	b := newRegistryBucket()
	switch has, err := b.Has(db, []byte(registryKey)); {
	case err != nil:
		return errors.Wrap(err, "registry lookup")
	case has:
		return errors.Wrap(ErrConfiguration, "already initialized")
	}
	return b.Save(db, orm.NewSimpleObj([]byte(registryKey), r.clone()))
}

// LoadRegistry returns the registry stored by InitGenesis.
func LoadRegistry(db custody.ReadOnlyKVStore) (*Registry, error) {
	obj, err := newRegistryBucket().Get(db, []byte(registryKey))
	if err != nil {
		return nil, errors.Wrap(err, "registry lookup")
	}
	if obj == nil {
		return nil, errors.Wrap(ErrConfiguration, "not initialized")
	}
	r, ok := obj.Value().(*Registry)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "stored registry")
	}
	return r, nil
}
