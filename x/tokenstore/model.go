package tokenstore

import (
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &TokenAccount{}, migration.NoModification)
	migration.MustRegister(1, &ReservedTally{}, migration.NoModification)
}

var (
	_ orm.CloneableData = (*TokenAccount)(nil)
	_ orm.CloneableData = (*ReservedTally)(nil)
)

func (a *TokenAccount) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", a.Metadata.Validate())
	if a.Balance == nil {
		errs = errors.AppendField(errs, "Balance", errors.ErrEmpty)
	} else {
		if err := a.Balance.Validate(); err != nil {
			errs = errors.AppendField(errs, "Balance", err)
		} else if !a.Balance.IsNonNegative() {
			errs = errors.AppendField(errs, "Balance", errors.ErrAmount)
		}
	}
	return errs
}

func (a *TokenAccount) Copy() orm.CloneableData {
	cpy := &TokenAccount{
		Metadata: a.Metadata.Copy(),
	}
	if a.Balance != nil {
		b := *a.Balance
		cpy.Balance = &b
	}
	return cpy
}

func (t *ReservedTally) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", t.Metadata.Validate())
	if t.Balance == nil {
		errs = errors.AppendField(errs, "Balance", errors.ErrEmpty)
	} else {
		if err := t.Balance.Validate(); err != nil {
			errs = errors.AppendField(errs, "Balance", err)
		} else if !t.Balance.IsNonNegative() {
			errs = errors.AppendField(errs, "Balance", errors.ErrAmount)
		}
	}
	return errs
}

func (t *ReservedTally) Copy() orm.CloneableData {
	cpy := &ReservedTally{
		Metadata: t.Metadata.Copy(),
	}
	if t.Balance != nil {
		b := *t.Balance
		cpy.Balance = &b
	}
	return cpy
}

// NewTokenAccountBucket returns a bucket for managing unclaimed token
// balances.
func NewTokenAccountBucket() orm.ModelBucket {
	b := orm.NewModelBucket("tokacct", &TokenAccount{})
	return migration.NewModelBucket("tokenstore", b)
}

// NewReservedTallyBucket returns a bucket for managing reserved token
// tallies.
func NewReservedTallyBucket() orm.ModelBucket {
	b := orm.NewModelBucket("reserved", &ReservedTally{})
	return migration.NewModelBucket("tokenstore", b)
}

func accountKey(domainID int64, holder weave.Address) []byte {
	key := make([]byte, 8, 8+len(holder))
	binary.BigEndian.PutUint64(key, uint64(domainID))
	return append(key, holder...)
}

func tallyKey(domainID int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(domainID))
	return key
}
