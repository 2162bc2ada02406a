package payout

import (
	"strconv"

	"github.com/tendermint/tendermint/libs/common"
)

// DistributionTags returns the tags that handlers attach to a delivery result
// of a successful distribution, so that distributions can be subscribed to
// and filtered by domain. One "payout" tag is emitted per split in list
// order, carrying the resolved recipient and the delivered amount, followed
// by a single aggregate group.
func DistributionTags(action string, req Request, res *Result) []common.KVPair {
	tags := make([]common.KVPair, 0, len(res.Payouts)+8)
	for _, p := range res.Payouts {
		tags = append(tags, common.KVPair{
			Key:   []byte("payout"),
			Value: []byte(p.Recipient.String() + " " + p.Amount.String()),
		})
	}
	tags = append(tags,
		common.KVPair{Key: []byte("action"), Value: []byte(action)},
		common.KVPair{Key: []byte("domain"), Value: []byte(strconv.FormatInt(req.DomainID, 10))},
		common.KVPair{Key: []byte("group"), Value: []byte(strconv.FormatInt(req.GroupID, 10))},
		common.KVPair{Key: []byte("distributed"), Value: []byte(res.Distributed.String())},
		common.KVPair{Key: []byte("remainder"), Value: []byte(res.Remainder.String())},
		common.KVPair{Key: []byte("caller"), Value: []byte(req.Caller.String())},
	)
	if req.Memo != "" {
		tags = append(tags, common.KVPair{Key: []byte("memo"), Value: []byte(req.Memo)})
	}
	if len(req.Details) != 0 {
		tags = append(tags, common.KVPair{Key: []byte("details"), Value: req.Details})
	}
	return tags
}
