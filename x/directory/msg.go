package directory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &SetEntryPointMsg{}, migration.NoModification)
}

var _ weave.Msg = (*SetEntryPointMsg)(nil)

func (SetEntryPointMsg) Path() string {
	return "directory/set_entry_point"
}

func (msg *SetEntryPointMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if msg.DomainID <= 0 {
		errs = errors.AppendField(errs, "DomainID", errors.ErrInput)
	}
	if msg.Kind == "" {
		errs = errors.AppendField(errs, "Kind", errors.ErrEmpty)
	}
	return errs
}
