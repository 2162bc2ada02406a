package directory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
)

// Initializer fulfils the Initializer interface to load data from the genesis
// file
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial entry point registrations from genesis and
// save them to the database
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, kv weave.KVStore) error {
	var records []struct {
		DomainID int64         `json:"domain_id"`
		Owner    weave.Address `json:"owner"`
		Kind     string        `json:"kind"`
	}
	if err := opts.ReadOptions("directory", &records); err != nil {
		return errors.Wrap(err, "cannot load directory")
	}

	bucket := NewEntryPointBucket()
	for i, r := range records {
		rec := EntryPointRecord{
			Metadata: &weave.Metadata{Schema: 1},
			Owner:    r.Owner,
			Kind:     r.Kind,
		}
		if _, err := bucket.Put(kv, recordKey(r.DomainID), &rec); err != nil {
			return errors.Wrapf(err, "cannot store #%d entry point", i)
		}
	}
	return nil
}
