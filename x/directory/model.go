package directory

import (
	"encoding/binary"

	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &EntryPointRecord{}, migration.NoModification)
}

var _ orm.CloneableData = (*EntryPointRecord)(nil)

func (r *EntryPointRecord) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", r.Metadata.Validate())
	errs = errors.AppendField(errs, "Owner", r.Owner.Validate())
	if r.Kind == "" {
		errs = errors.AppendField(errs, "Kind", errors.ErrEmpty)
	}
	return errs
}

func (r *EntryPointRecord) Copy() orm.CloneableData {
	return &EntryPointRecord{
		Metadata: r.Metadata.Copy(),
		Owner:    r.Owner.Clone(),
		Kind:     r.Kind,
	}
}

// NewEntryPointBucket returns a bucket for managing entry point registrations.
func NewEntryPointBucket() orm.ModelBucket {
	b := orm.NewModelBucket("entrypt", &EntryPointRecord{})
	return migration.NewModelBucket("directory", b)
}

func recordKey(domainID int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(domainID))
	return key
}
