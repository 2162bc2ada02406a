package operators

import (
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &OperatorGrant{}, migration.NoModification)
}

// Permission indexes understood by the protocol. Grants are bitfields, one
// bit per index, so indexes must stay below 64.
const (
	// SetSplits allows an operator to replace split groups administered by
	// the granting account.
	SetSplits uint32 = 1
	// ReserveTokens allows an operator to add to a domain reserved token
	// tally.
	ReserveTokens uint32 = 2

	maxPermissionIndex = 63
)

// Pack combines permission indexes into a single bitfield.
func Pack(indexes ...uint32) (uint64, error) {
	var packed uint64
	for _, idx := range indexes {
		if idx > maxPermissionIndex {
			return 0, errors.Wrapf(errors.ErrInput, "permission index %d out of range", idx)
		}
		packed |= 1 << idx
	}
	return packed, nil
}

// Has returns true if the packed bitfield contains given permission index.
func Has(packed uint64, index uint32) bool {
	if index > maxPermissionIndex {
		return false
	}
	return packed&(1<<index) != 0
}

var _ orm.CloneableData = (*OperatorGrant)(nil)

func (g *OperatorGrant) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", g.Metadata.Validate())
	errs = errors.AppendField(errs, "Account", g.Account.Validate())
	errs = errors.AppendField(errs, "Operator", g.Operator.Validate())
	if g.DomainID < 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrInput)
	}
	return errs
}

func (g *OperatorGrant) Copy() orm.CloneableData {
	return &OperatorGrant{
		Metadata:    g.Metadata.Copy(),
		Account:     g.Account.Clone(),
		Operator:    g.Operator.Clone(),
		DomainID:    g.DomainID,
		Permissions: g.Permissions,
	}
}

// NewGrantBucket returns a bucket for managing operator grants.
func NewGrantBucket() orm.ModelBucket {
	b := orm.NewModelBucket("opgrant", &OperatorGrant{})
	return migration.NewModelBucket("operators", b)
}

// grantKey builds the key a grant is stored under. One grant exists per
// (account, operator, domain) combination.
func grantKey(account, operator weave.Address, domainID int64) []byte {
	key := make([]byte, 0, len(account)+len(operator)+8)
	key = append(key, account...)
	key = append(key, operator...)
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(domainID))
	return append(key, raw...)
}
