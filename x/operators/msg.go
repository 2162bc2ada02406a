package operators

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	migration.MustRegister(1, &SetOperatorsMsg{}, migration.NoModification)
}

var _ weave.Msg = (*SetOperatorsMsg)(nil)

func (SetOperatorsMsg) Path() string {
	return "operators/set_operators"
}

func (msg *SetOperatorsMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", msg.Metadata.Validate())
	if len(msg.Operators) == 0 {
		errs = errors.AppendField(errs, "Operators", errors.ErrEmpty)
	}
	for i, op := range msg.Operators {
		if op == nil {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrMsg, "operator %d is nil", i))
			continue
		}
		if err := op.Operator.Validate(); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "operator %d address", i))
		}
		if op.DomainID < 0 {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrInput, "operator %d negative domain", i))
		}
		if _, err := Pack(op.PermissionIndexes...); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "operator %d permissions", i))
		}
	}
	return errs
}
