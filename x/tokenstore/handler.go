package tokenstore

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"

	"github.com/iov-one/splitpay/x/operators"
	"github.com/iov-one/splitpay/x/payout"
	"github.com/iov-one/splitpay/x/splits"
)

const (
	reserveCost    int64 = 10
	distributeCost int64 = 30
	claimCost      int64 = 10
)

// Ownership resolves a domain to its owner. Required functionality is
// implemented by the x/directory extension.
type Ownership interface {
	OwnerOf(db weave.ReadOnlyKVStore, domainID int64) (weave.Address, error)
}

// Operators allows to check delegated permissions. Required functionality is
// implemented by the x/operators extension.
type Operators interface {
	CanOperate(db weave.ReadOnlyKVStore, account, operator weave.Address, domainID int64, permission uint32) (bool, error)
}

// RegisterQuery registers token accounts and reserved tallies for querying.
func RegisterQuery(qr weave.QueryRouter) {
	NewTokenAccountBucket().Register("tokenaccounts", qr)
	NewReservedTallyBucket().Register("reserved", qr)
}

// RegisterRoutes registers handlers for token store message processing. A nil
// ops disables operator delegation and only domain owners can reserve.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ctrl *Controller, dir Ownership, ops Operators) {
	r = migration.SchemaMigratingRegistry("tokenstore", r)
	r.Handle(&ReserveMsg{}, &reserveHandler{
		auth: auth,
		ctrl: ctrl,
		dir:  dir,
		ops:  ops,
	})
	r.Handle(&DistributeReservedMsg{}, &distributeReservedHandler{
		auth: auth,
		ctrl: ctrl,
		dir:  dir,
	})
	r.Handle(&ClaimMsg{}, &claimHandler{
		auth: auth,
		ctrl: ctrl,
	})
}

type reserveHandler struct {
	auth x.Authenticator
	ctrl *Controller
	dir  Ownership
	ops  Operators
}

func (h *reserveHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: reserveCost}, nil
}

func (h *reserveHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.ctrl.Reserve(db, msg.DomainID, *msg.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot reserve")
	}
	return &weave.DeliverResult{Data: tallyKey(msg.DomainID)}, nil
}

func (h *reserveHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ReserveMsg, error) {
	var msg ReserveMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	owner, err := h.dir.OwnerOf(db, msg.DomainID)
	if err != nil {
		return nil, errors.Wrapf(err, "domain %d", msg.DomainID)
	}
	if h.auth.HasAddress(ctx, owner) {
		return &msg, nil
	}
	if h.ops != nil {
		for _, c := range h.auth.GetConditions(ctx) {
			ok, err := h.ops.CanOperate(db, owner, c.Address(), msg.DomainID, operators.ReserveTokens)
			if err != nil {
				return nil, errors.Wrap(err, "cannot check operator grant")
			}
			if ok {
				return &msg, nil
			}
		}
	}
	return nil, errors.Wrap(errors.ErrUnauthorized, "neither an owner nor an operator")
}

type distributeReservedHandler struct {
	auth x.Authenticator
	ctrl *Controller
	dir  Ownership
}

func (h *distributeReservedHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: distributeCost}, nil
}

func (h *distributeReservedHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	owner, err := h.dir.OwnerOf(db, msg.DomainID)
	if err != nil {
		return nil, errors.Wrapf(err, "domain %d", msg.DomainID)
	}

	reserved, err := h.ctrl.Reserved(db, msg.DomainID)
	if err != nil {
		return nil, err
	}
	if reserved == nil || reserved.IsZero() {
		return nil, errors.Wrapf(errors.ErrEmpty, "domain %d has nothing reserved", msg.DomainID)
	}

	ss, err := splits.SplitsOf(db, msg.DomainID, msg.GenerationID, splits.GroupReserved)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load splits")
	}

	var caller weave.Address
	if signer := x.MainSigner(ctx, h.auth); signer != nil {
		caller = signer.Address()
	}

	// Reserved tokens are minted, not transferred. A share that targets
	// another domain is minted in that domain token store, to the domain
	// owner.
	engine := payout.Engine{
		TotalPercent: splits.TotalPercent,
		Directory:    &mintDirectory{ctrl: h.ctrl, dir: h.dir},
		Delivery:     &mintDelivery{ctrl: h.ctrl, domainID: msg.DomainID},
	}
	req := payout.Request{
		DomainID: msg.DomainID,
		GroupID:  splits.GroupReserved,
		Amount:   *reserved,
		Splits:   ss,
		Default:  owner,
		Caller:   caller,
		Memo:     msg.Memo,
		Details:  msg.Details,
	}
	res, err := engine.Distribute(ctx, db, req)
	if err != nil {
		return nil, errors.Wrap(err, "cannot distribute")
	}

	if err := h.ctrl.ConsumeReserved(db, msg.DomainID, *reserved); err != nil {
		return nil, errors.Wrap(err, "cannot consume reserved")
	}

	return &weave.DeliverResult{
		Data: tallyKey(msg.DomainID),
		Tags: payout.DistributionTags("distribute_reserved", req, res),
	}, nil
}

func (h *distributeReservedHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DistributeReservedMsg, error) {
	var msg DistributeReservedMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	return &msg, nil
}

type claimHandler struct {
	auth x.Authenticator
	ctrl *Controller
}

func (h *claimHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: claimCost}, nil
}

func (h *claimHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, holder, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	claimed, err := h.ctrl.Claim(db, msg.DomainID, holder, msg.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "cannot claim")
	}
	return &weave.DeliverResult{
		Data: accountKey(msg.DomainID, holder),
		Log:  "claimed " + claimed.String(),
	}, nil
}

func (h *claimHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*ClaimMsg, weave.Address, error) {
	var msg ClaimMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	signer := x.MainSigner(ctx, h.auth)
	if signer == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return &msg, signer.Address(), nil
}

// mintDelivery implements payout.Delivery by minting tokens of a fixed
// domain.
type mintDelivery struct {
	ctrl     *Controller
	domainID int64
}

func (d *mintDelivery) Deliver(ctx weave.Context, db weave.KVStore, recipient weave.Address, amount coin.Coin, preferClaimed bool) error {
	return d.ctrl.Mint(db, d.domainID, recipient, amount, preferClaimed)
}

// mintDirectory resolves the target domain of a cross domain share to a mint
// entry point. Only registered domains resolve, an unknown domain fails the
// distribution.
type mintDirectory struct {
	ctrl *Controller
	dir  Ownership
}

func (d *mintDirectory) EntryPointOf(db weave.ReadOnlyKVStore, domainID int64) (payout.EntryPoint, error) {
	owner, err := d.dir.OwnerOf(db, domainID)
	if err != nil {
		return nil, errors.Wrapf(err, "domain %d", domainID)
	}
	return &mintEntryPoint{ctrl: d.ctrl, owner: owner}, nil
}

// mintEntryPoint mints the payment amount in the target domain token store,
// to the owner of that domain. Minting cannot credit an arbitrary payer
// account, so the payment beneficiary is ignored.
type mintEntryPoint struct {
	ctrl  *Controller
	owner weave.Address
}

func (e *mintEntryPoint) Pay(ctx weave.Context, db weave.KVStore, p payout.Payment) error {
	return e.ctrl.Mint(db, p.DomainID, e.owner, p.Amount, p.PreferClaimed)
}
