package terminal

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &DepositMsg{}, migration.NoModification)
	migration.MustRegister(1, &DistributePayoutsMsg{}, migration.NoModification)
}

const maxMemoSize = 128

var (
	_ weave.Msg = (*DepositMsg)(nil)
	_ weave.Msg = (*DistributePayoutsMsg)(nil)
)

func (DepositMsg) Path() string {
	return "terminal/deposit"
}

func (msg *DepositMsg) Validate() error {
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
	if len(msg.Memo) > maxMemoSize {
		errs = errors.AppendField(errs, "Memo", errors.ErrInput)
	}
	return errs
}

func (DistributePayoutsMsg) Path() string {
	return "terminal/distribute_payouts"
}

func (msg *DistributePayoutsMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if msg.DomainID <= 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrInput)
	}
	if msg.GenerationID < 0 {
		errs = errors.AppendField(errs, "GenerationID", errors.ErrInput)
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
	if len(msg.Memo) > maxMemoSize {
		errs = errors.AppendField(errs, "Memo", errors.ErrInput)
	}
	return errs
}
