package directory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"

	"github.com/iov-one/splitpay/x/payout"
)

// Keeper resolves domains to their registered entry points. Entry point
// implementations register under a kind name during application wiring, the
// directory records decide which kind serves which domain.
type Keeper struct {
	bucket orm.ModelBucket
	kinds  map[string]payout.EntryPoint
}

var _ payout.Directory = (*Keeper)(nil)

func NewKeeper() *Keeper {
	return &Keeper{
		bucket: NewEntryPointBucket(),
		kinds:  make(map[string]payout.EntryPoint),
	}
}

// RegisterKind binds a kind name to an entry point implementation. Meant to
// be called once per kind during application construction.
func (k *Keeper) RegisterKind(kind string, ep payout.EntryPoint) {
	if _, ok := k.kinds[kind]; ok {
		panic("duplicate entry point kind: " + kind)
	}
	k.kinds[kind] = ep
}

func (k *Keeper) knownKind(kind string) bool {
	_, ok := k.kinds[kind]
	return ok
}

// OwnerOf returns the address that claimed given domain.
func (k *Keeper) OwnerOf(db weave.ReadOnlyKVStore, domainID int64) (weave.Address, error) {
	var rec EntryPointRecord
	if err := k.bucket.One(db, recordKey(domainID), &rec); err != nil {
		return nil, errors.Wrapf(err, "domain %d", domainID)
	}
	return rec.Owner, nil
}

func (k *Keeper) EntryPointOf(db weave.ReadOnlyKVStore, domainID int64) (payout.EntryPoint, error) {
	var rec EntryPointRecord
	if err := k.bucket.One(db, recordKey(domainID), &rec); err != nil {
		return nil, errors.Wrapf(err, "domain %d", domainID)
	}
	ep, ok := k.kinds[rec.Kind]
	if !ok {
		return nil, errors.Wrapf(errors.ErrState, "entry point kind %q not registered", rec.Kind)
	}
	return ep, nil
}
