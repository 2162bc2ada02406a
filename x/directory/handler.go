package directory

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"
)

const setEntryPointCost int64 = 10

// RegisterQuery registers entry point records for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewEntryPointBucket().Register("directory", qr)
}

// RegisterRoutes registers handlers for entry point management.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, k *Keeper) {
	r = migration.SchemaMigratingRegistry("directory", r)
	r.Handle(&SetEntryPointMsg{}, &setEntryPointHandler{
		auth:   auth,
		keeper: k,
	})
}

type setEntryPointHandler struct {
	auth   x.Authenticator
	keeper *Keeper
}

func (h *setEntryPointHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: setEntryPointCost}, nil
}

func (h *setEntryPointHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	key := recordKey(msg.DomainID)

	var owner weave.Address
	var current EntryPointRecord
	switch err := h.keeper.bucket.One(db, key, &current); {
	case err == nil:
		if !h.auth.HasAddress(ctx, current.Owner) {
			return nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
		}
		owner = current.Owner
	case errors.ErrNotFound.Is(err):
		// First registration claims the domain for the main signer.
		signer := x.MainSigner(ctx, h.auth)
		if signer == nil {
			return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		owner = signer.Address()
	default:
		return nil, errors.Wrap(err, "cannot load entry point record")
	}

	rec := EntryPointRecord{
		Metadata: &weave.Metadata{Schema: 1},
		Owner:    owner,
		Kind:     msg.Kind,
	}
	if _, err := h.keeper.bucket.Put(db, key, &rec); err != nil {
		return nil, errors.Wrap(err, "cannot store entry point record")
	}
	return &weave.DeliverResult{Data: key}, nil
}

func (h *setEntryPointHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*SetEntryPointMsg, error) {
	var msg SetEntryPointMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.keeper.knownKind(msg.Kind) {
		return nil, errors.Wrapf(errors.ErrInput, "unknown entry point kind %q", msg.Kind)
	}
	return &msg, nil
}
