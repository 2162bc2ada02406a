package splits

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"

	"github.com/iov-one/splitpay/x/operators"
)

const setSplitsPerSplitCost int64 = 10

// Operators allows to check delegated permissions without direct access to
// the operator grants bucket. Required functionality is implemented by the
// x/operators extension.
type Operators interface {
	CanOperate(db weave.ReadOnlyKVStore, account, operator weave.Address, domainID int64, permission uint32) (bool, error)
}

// RegisterQuery registers split group bucket for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewSplitGroupBucket().Register("splits", qr)
}

// RegisterRoutes registers handlers for split list management. A nil ops
// disables operator delegation and only group admins can update splits.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ops Operators) {
	r = migration.SchemaMigratingRegistry("splits", r)
	r.Handle(&SetSplitsMsg{}, &setSplitsHandler{
		auth:   auth,
		bucket: NewSplitGroupBucket(),
		ops:    ops,
	})
}

type setSplitsHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	ops    Operators
}

func (h *setSplitsHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	return &weave.CheckResult{
		GasAllocated: setSplitsPerSplitCost * int64(len(msg.Splits)),
	}, nil
}

func (h *setSplitsHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	key := GroupKey(msg.DomainID, msg.GenerationID, msg.GroupID)

	var current SplitGroup
	switch err := h.bucket.One(db, key, &current); {
	case err == nil:
		if err := h.authorized(ctx, db, current.Admin, msg.DomainID); err != nil {
			return nil, err
		}
		if err := ensureLocksKept(ctx, current.Splits, msg.Splits); err != nil {
			return nil, err
		}
	case errors.ErrNotFound.Is(err):
		// A fresh group is claimed by declaring yourself the admin.
		if !h.auth.HasAddress(ctx, msg.Admin) {
			return nil, errors.Wrap(errors.ErrUnauthorized, "admin signature required to create a group")
		}
	default:
		return nil, errors.Wrap(err, "cannot load split group")
	}

	group := SplitGroup{
		Metadata: &weave.Metadata{Schema: 1},
		Admin:    msg.Admin,
		Splits:   msg.Splits,
	}
	if _, err := h.bucket.Put(db, key, &group); err != nil {
		return nil, errors.Wrap(err, "cannot store split group")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *setSplitsHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*SetSplitsMsg, error) {
	var msg SetSplitsMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	return &msg, nil
}

// authorized returns nil if the transaction carries the admin signature, or
// the signature of an operator that admin granted split management rights
// for this domain.
func (h *setSplitsHandler) authorized(ctx weave.Context, db weave.KVStore, admin weave.Address, domainID int64) error {
	if h.auth.HasAddress(ctx, admin) {
		return nil
	}
	if h.ops == nil {
		return errors.Wrap(errors.ErrUnauthorized, "not an admin")
	}
	for _, c := range h.auth.GetConditions(ctx) {
		ok, err := h.ops.CanOperate(db, admin, c.Address(), domainID, operators.SetSplits)
		if err != nil {
			return errors.Wrap(err, "cannot check operator grant")
		}
		if ok {
			return nil
		}
	}
	return errors.Wrap(errors.ErrUnauthorized, "neither an admin nor an operator")
}

// ensureLocksKept fails unless every locked split from the current
// configuration is present in the new one. A locked split must stay exactly
// the same, only its lock may be extended.
func ensureLocksKept(ctx weave.Context, current, updated []*Split) error {
	for _, old := range current {
		if !old.Locked(ctx) {
			continue
		}
		kept := false
		for _, split := range updated {
			if old.Equal(split) && split.LockedUntil >= old.LockedUntil {
				kept = true
				break
			}
		}
		if !kept {
			return errors.Wrap(errors.ErrState, "locked split removed or modified")
		}
	}
	return nil
}
