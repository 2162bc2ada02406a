package splits

import (
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &SplitGroup{}, migration.NoModification)
}

const (
	// TotalPercent is the denominator that split share percents are
	// expressed in. A group whose shares sum up to TotalPercent consumes
	// the full distributed amount. This is the protocol wide default, the
	// distribution engine receives it as explicit configuration.
	TotalPercent uint32 = 1000000000

	// GroupPayouts is the well known group ID for payout distributions.
	GroupPayouts int64 = 1
	// GroupReserved is the well known group ID for reserved token
	// distributions.
	GroupReserved int64 = 2

	// maxSplits defines the maximum number of splits allowed within a
	// single group. This is a high number that should not be an issue in
	// real life scenarios but it protects against abusive configurations.
	maxSplits = 200
)

var _ orm.CloneableData = (*SplitGroup)(nil)

func (sg *SplitGroup) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", sg.Metadata.Validate())
	errs = errors.AppendField(errs, "Admin", sg.Admin.Validate())
	if err := validateSplits(sg.Splits, errors.ErrModel); err != nil {
		errs = errors.Append(errs, err)
	}
	return errs
}

func (sg *SplitGroup) Copy() orm.CloneableData {
	cpy := &SplitGroup{
		Metadata: sg.Metadata.Copy(),
		Admin:    sg.Admin.Clone(),
		Splits:   make([]*Split, len(sg.Splits)),
	}
	for i, s := range sg.Splits {
		cpy.Splits[i] = s.Clone()
	}
	return cpy
}

func (s *Split) Clone() *Split {
	return &Split{
		SharePercent:   s.SharePercent,
		PreferClaimed:  s.PreferClaimed,
		PreferCredit:   s.PreferCredit,
		TargetDomainID: s.TargetDomainID,
		Beneficiary:    s.Beneficiary.Clone(),
		LockedUntil:    s.LockedUntil,
		Allocator:      s.Allocator.Clone(),
	}
}

func (s *Split) Validate() error {
	if s.SharePercent == 0 {
		return errors.Wrap(errors.ErrAmount, "share percent must be greater than zero")
	}
	if s.SharePercent > TotalPercent {
		return errors.Wrap(errors.ErrAmount, "share percent greater than the total percent")
	}
	if s.TargetDomainID < 0 {
		return errors.Wrap(errors.ErrInput, "negative target domain")
	}
	if len(s.Beneficiary) != 0 {
		if err := s.Beneficiary.Validate(); err != nil {
			return errors.Wrap(err, "beneficiary")
		}
	}
	if len(s.Allocator) != 0 {
		if err := s.Allocator.Validate(); err != nil {
			return errors.Wrap(err, "allocator")
		}
	}
	if err := s.LockedUntil.Validate(); err != nil {
		return errors.Wrap(err, "locked until")
	}
	return nil
}

// validateSplits returns an error if the given split list cannot be stored as
// a group. Used for both model and message validation, with a different base
// error class each.
func validateSplits(ss []*Split, baseErr *errors.Error) error {
	if len(ss) > maxSplits {
		return errors.Wrap(baseErr, "too many splits")
	}
	var sum uint64
	for i, s := range ss {
		if s == nil {
			return errors.Wrapf(baseErr, "split %d is nil", i)
		}
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "split %d", i)
		}
		sum += uint64(s.SharePercent)
	}
	// A group claiming more than the whole amount must be rejected when
	// written. The distribution engine asserts this invariant but never
	// corrects it.
	if sum > uint64(TotalPercent) {
		return errors.Wrap(baseErr, "split percents sum above the total percent")
	}
	return nil
}

// Locked returns true if the split must not be removed or modified at the
// current block time.
func (s *Split) Locked(ctx weave.Context) bool {
	if s.LockedUntil == 0 {
		return false
	}
	return !weave.IsExpired(ctx, s.LockedUntil)
}

// Equal returns true if both splits are the same delivery configuration. The
// lock timestamp is ignored, so that a lock extension still compares as the
// same split.
func (s *Split) Equal(o *Split) bool {
	return s.SharePercent == o.SharePercent &&
		s.PreferClaimed == o.PreferClaimed &&
		s.PreferCredit == o.PreferCredit &&
		s.TargetDomainID == o.TargetDomainID &&
		s.Beneficiary.Equals(o.Beneficiary) &&
		s.Allocator.Equals(o.Allocator)
}

// NewSplitGroupBucket returns a bucket for managing split groups.
func NewSplitGroupBucket() orm.ModelBucket {
	b := orm.NewModelBucket("splitgrp", &SplitGroup{})
	return migration.NewModelBucket("splits", b)
}

// GroupKey builds the key a split group is stored under.
func GroupKey(domainID, generationID, groupID int64) []byte {
	key := make([]byte, 24)
	binary.BigEndian.PutUint64(key[0:], uint64(domainID))
	binary.BigEndian.PutUint64(key[8:], uint64(generationID))
	binary.BigEndian.PutUint64(key[16:], uint64(groupID))
	return key
}

// SplitsOf returns the splits stored for a given triple. A triple that was
// never configured resolves to an empty split list, not an error, because
// distributing over no splits is a legal operation that moves the full amount
// to the default recipient.
func SplitsOf(db weave.ReadOnlyKVStore, domainID, generationID, groupID int64) ([]*Split, error) {
	var group SplitGroup
	switch err := NewSplitGroupBucket().One(db, GroupKey(domainID, generationID, groupID), &group); {
	case err == nil:
		return group.Splits, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "cannot load split group")
	}
}
