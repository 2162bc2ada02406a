package terminal

import (
	"encoding/binary"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"

	"github.com/iov-one/splitpay/x/payout"
	"github.com/iov-one/splitpay/x/splits"
)

const (
	depositCost    int64 = 10
	distributeCost int64 = 30
)

// CashController allows to manage coins stored by the accounts without the
// need to directly access the bucket.
// Required functionality is implemented by the x/cash extension.
type CashController interface {
	Balance(weave.KVStore, weave.Address) (coin.Coins, error)
	MoveCoins(weave.KVStore, weave.Address, weave.Address, coin.Coin) error
}

// Directory resolves domains to their entry points and owners. Required
// functionality is implemented by the x/directory extension.
type Directory interface {
	payout.Directory
	OwnerOf(db weave.ReadOnlyKVStore, domainID int64) (weave.Address, error)
}

// DomainAccount returns the address of the account that holds the funds of a
// domain. No private key exists for this address, funds can leave it only
// through a distribution.
func DomainAccount(domainID int64) weave.Address {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(domainID))
	return weave.NewCondition("terminal", "domain", raw).Address()
}

// RegisterRoutes registers handlers for terminal message processing.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, ctrl CashController, dir Directory, allocs payout.Allocators) {
	r = migration.SchemaMigratingRegistry("terminal", r)
	r.Handle(&DepositMsg{}, &depositHandler{
		auth: auth,
		ctrl: ctrl,
		dir:  dir,
	})
	r.Handle(&DistributePayoutsMsg{}, &distributeHandler{
		auth:   auth,
		ctrl:   ctrl,
		dir:    dir,
		allocs: allocs,
	})
}

type depositHandler struct {
	auth x.Authenticator
	ctrl CashController
	dir  Directory
}

func (h *depositHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: depositCost}, nil
}

func (h *depositHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, payer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	acct := DomainAccount(msg.DomainID)
	if err := h.ctrl.MoveCoins(db, payer, acct, *msg.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot move coins")
	}
	return &weave.DeliverResult{Data: acct, Log: msg.Memo}, nil
}

func (h *depositHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DepositMsg, weave.Address, error) {
	var msg DepositMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	// Funds can be deposited only to a registered domain. Otherwise they
	// could not be distributed and would be stuck forever.
	if _, err := h.dir.OwnerOf(db, msg.DomainID); err != nil {
		return nil, nil, errors.Wrapf(err, "domain %d", msg.DomainID)
	}
	signer := x.MainSigner(ctx, h.auth)
	if signer == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return &msg, signer.Address(), nil
}

type distributeHandler struct {
	auth   x.Authenticator
	ctrl   CashController
	dir    Directory
	allocs payout.Allocators
}

func (h *distributeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &weave.CheckResult{GasAllocated: distributeCost}, nil
}

func (h *distributeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	owner, err := h.dir.OwnerOf(db, msg.DomainID)
	if err != nil {
		return nil, errors.Wrapf(err, "domain %d", msg.DomainID)
	}

	acct := DomainAccount(msg.DomainID)
	balance, err := h.ctrl.Balance(db, acct)
	if err != nil && !errors.ErrNotFound.Is(err) {
		return nil, errors.Wrap(err, "cannot get domain balance")
	}
	if !balance.Contains(*msg.Amount) {
		return nil, errors.Wrapf(errors.ErrAmount, "domain %d holds less than %s", msg.DomainID, msg.Amount)
	}

	ss, err := splits.SplitsOf(db, msg.DomainID, msg.GenerationID, splits.GroupPayouts)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load splits")
	}

	var caller weave.Address
	if signer := x.MainSigner(ctx, h.auth); signer != nil {
		caller = signer.Address()
	}

	engine := payout.Engine{
		TotalPercent: splits.TotalPercent,
		Directory:    h.dir,
		Allocators:   h.allocs,
		Delivery:     &cashDelivery{ctrl: h.ctrl, source: acct},
	}
	req := payout.Request{
		DomainID: msg.DomainID,
		GroupID:  splits.GroupPayouts,
		Payer:    acct,
		Amount:   *msg.Amount,
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

	return &weave.DeliverResult{
		Data: acct,
		Tags: payout.DistributionTags("distribute_payouts", req, res),
	}, nil
}

func (h *distributeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*DistributePayoutsMsg, error) {
	var msg DistributePayoutsMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	return &msg, nil
}

// cashDelivery implements payout.Delivery by moving coins out of a fixed
// source account.
type cashDelivery struct {
	ctrl   CashController
	source weave.Address
}

func (d *cashDelivery) Deliver(ctx weave.Context, db weave.KVStore, recipient weave.Address, amount coin.Coin, preferClaimed bool) error {
	return d.ctrl.MoveCoins(db, d.source, recipient, amount)
}

// EntryPoint returns the terminal entry point implementation, accepting
// payments into domain accounts. Register it with the directory under the
// "terminal" kind.
func EntryPoint(ctrl CashController) payout.EntryPoint {
	return &entryPoint{ctrl: ctrl}
}

type entryPoint struct {
	ctrl CashController
}

func (e *entryPoint) Pay(ctx weave.Context, db weave.KVStore, p payout.Payment) error {
	if err := e.ctrl.MoveCoins(db, p.Payer, DomainAccount(p.DomainID), p.Amount); err != nil {
		return errors.Wrap(err, "cannot move coins")
	}
	return nil
}
