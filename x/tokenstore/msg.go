package tokenstore

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &ReserveMsg{}, migration.NoModification)
	migration.MustRegister(1, &DistributeReservedMsg{}, migration.NoModification)
	migration.MustRegister(1, &ClaimMsg{}, migration.NoModification)
}

const maxMemoSize = 128

var (
	_ weave.Msg = (*ReserveMsg)(nil)
	_ weave.Msg = (*DistributeReservedMsg)(nil)
	_ weave.Msg = (*ClaimMsg)(nil)
)

func (ReserveMsg) Path() string {
	return "tokenstore/reserve"
}

func (msg *ReserveMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if msg.DomainID <= 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrInput)
	}
	if msg.Amount == nil {
		errs = errors.AppendField(errs, "Amount", errors.ErrEmpty)
	} else {
		if err := msg.Amount.Validate(); err != nil {
			errs = errors.AppendField(errs, "Amount", err)
		} else if !msg.Amount.IsPositive() {
			errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
		}
	}
	return errs
}

func (DistributeReservedMsg) Path() string {
	return "tokenstore/distribute_reserved"
}

func (msg *DistributeReservedMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if msg.DomainID <= 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrInput)
	}
	if msg.GenerationID < 0 {
		errs = errors.AppendField(errs, "GenerationID", errors.ErrInput)
	}
	if len(msg.Memo) > maxMemoSize {
		errs = errors.AppendField(errs, "Memo", errors.ErrInput)
	}
	return errs
}

func (ClaimMsg) Path() string {
	return "tokenstore/claim"
}

func (msg *ClaimMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if msg.DomainID <= 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrInput)
	}
	// A nil amount claims the full unclaimed balance.
	if msg.Amount != nil {
		if err := msg.Amount.Validate(); err != nil {
			errs = errors.AppendField(errs, "Amount", err)
		} else if !msg.Amount.IsPositive() {
			errs = errors.AppendField(errs, "Amount", errors.ErrAmount)
		}
	}
	return errs
}
