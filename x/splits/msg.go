package splits

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &SetSplitsMsg{}, migration.NoModification)
}

var _ weave.Msg = (*SetSplitsMsg)(nil)

func (SetSplitsMsg) Path() string {
	return "splits/set_splits"
}

func (msg *SetSplitsMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if msg.DomainID <= 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrEmpty)
	}
	if msg.GenerationID <= 0 {
		errs = errors.AppendField(errs, "GenerationID", errors.ErrEmpty)
	}
	if msg.GroupID <= 0 {
		errs = errors.AppendField(errs, "GroupID", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Admin", msg.Admin.Validate())
	if err := validateSplits(msg.Splits, errors.ErrMsg); err != nil {
		errs = errors.Append(errs, err)
	}
	return errs
}
