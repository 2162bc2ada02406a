package splits

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
)

// Initializer fulfils the Initializer interface to load data from the genesis
// file
type Initializer struct{}

var _ weave.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial split group configuration from genesis and
// save it to the database
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, kv weave.KVStore) error {
	type split struct {
		SharePercent   uint32         `json:"share_percent"`
		Beneficiary    weave.Address  `json:"beneficiary"`
		Allocator      weave.Address  `json:"allocator"`
		TargetDomainID int64          `json:"target_domain_id"`
		PreferClaimed  bool           `json:"prefer_claimed"`
		PreferCredit   bool           `json:"prefer_credit"`
		LockedUntil    weave.UnixTime `json:"locked_until"`
	}
	var groups []struct {
		DomainID     int64         `json:"domain_id"`
		GenerationID int64         `json:"generation_id"`
		GroupID      int64         `json:"group_id"`
		Admin        weave.Address `json:"admin"`
		Splits       []split       `json:"splits"`
	}
	if err := opts.ReadOptions("splits", &groups); err != nil {
		return errors.Wrap(err, "cannot load splits")
	}

	bucket := NewSplitGroupBucket()
	for i, g := range groups {
		ss := make([]*Split, 0, len(g.Splits))
		for _, s := range g.Splits {
			ss = append(ss, &Split{
				SharePercent:   s.SharePercent,
				Beneficiary:    s.Beneficiary,
				Allocator:      s.Allocator,
				TargetDomainID: s.TargetDomainID,
				PreferClaimed:  s.PreferClaimed,
				PreferCredit:   s.PreferCredit,
				LockedUntil:    s.LockedUntil,
			})
		}
		group := SplitGroup{
			Metadata: &weave.Metadata{Schema: 1},
			Admin:    g.Admin,
			Splits:   ss,
		}
		key := GroupKey(g.DomainID, g.GenerationID, g.GroupID)
		if _, err := bucket.Put(kv, key, &group); err != nil {
			return errors.Wrapf(err, "cannot store #%d split group", i)
		}
	}
	return nil
}
