package tokenstore_test

import (
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/x/cash"

	"github.com/iov-one/splitpay/x/directory"
	"github.com/iov-one/splitpay/x/operators"
	"github.com/iov-one/splitpay/x/payout"
	"github.com/iov-one/splitpay/x/splits"
	"github.com/iov-one/splitpay/x/tokenstore"
)

type fixture struct {
	db   weave.CacheableKVStore
	rt   *app.Router
	auth *weavetest.CtxAuth
	cash cash.BaseController
	ctrl *tokenstore.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := store.MemStore()
	migration.MustInitPkg(db, "cash", "splits", "directory", "operators", "tokenstore")

	auth := &weavetest.CtxAuth{Key: "auth"}
	cashCtrl := cash.NewController(cash.NewBucket())
	ctrl := tokenstore.NewController(cashCtrl)
	keeper := directory.NewKeeper()
	keeper.RegisterKind("tokenstore", noopEntryPoint{})

	rt := app.NewRouter()
	opsCtrl := operators.NewController()
	directory.RegisterRoutes(rt, auth, keeper)
	splits.RegisterRoutes(rt, auth, opsCtrl)
	operators.RegisterRoutes(rt, auth)
	tokenstore.RegisterRoutes(rt, auth, ctrl, keeper, opsCtrl)

	return &fixture{
		db:   db,
		rt:   rt,
		auth: auth,
		cash: cashCtrl,
		ctrl: ctrl,
	}
}

type noopEntryPoint struct{}

func (noopEntryPoint) Pay(ctx weave.Context, db weave.KVStore, p payout.Payment) error {
	return nil
}

func (f *fixture) ctx(conds ...weave.Condition) weave.Context {
	ctx := weave.WithHeight(context.Background(), 100)
	ctx = weave.WithChainID(ctx, "testchain-123")
	return f.auth.SetConditions(ctx, conds...)
}

func (f *fixture) deliver(t *testing.T, cond weave.Condition, msg weave.Msg) {
	t.Helper()
	if _, err := f.rt.Deliver(f.ctx(cond), f.db, &weavetest.Tx{Msg: msg}); err != nil {
		t.Fatalf("cannot deliver %T: %+v", msg, err)
	}
}

func (f *fixture) registerDomain(t *testing.T, owner weave.Condition, domainID int64) {
	t.Helper()
	f.deliver(t, owner, &directory.SetEntryPointMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: domainID,
		Kind:     "tokenstore",
	})
}

func (f *fixture) assertUnclaimed(t *testing.T, domainID int64, holder weave.Address, want coin.Coin) {
	t.Helper()
	got, err := f.ctrl.Unclaimed(f.db, domainID, holder)
	if err != nil {
		t.Fatalf("unclaimed of %s: %s", holder, err)
	}
	if want.IsZero() {
		if got != nil && !got.IsZero() {
			t.Errorf("want no unclaimed tokens for %s, got %s", holder, got)
		}
		return
	}
	if got == nil || !got.Equals(want) {
		t.Errorf("want %s unclaimed for %s, got %s", want, holder, got)
	}
}

func (f *fixture) assertWallet(t *testing.T, holder weave.Address, want coin.Coin) {
	t.Helper()
	balance, err := f.cash.Balance(f.db, holder)
	if err != nil && !errors.ErrNotFound.Is(err) {
		t.Fatalf("cannot get balance of %s: %s", holder, err)
	}
	if want.IsZero() {
		if balance.IsPositive() {
			t.Errorf("want no coins on %s, got %s", holder, balance)
		}
		return
	}
	if !balance.Contains(want) {
		t.Errorf("want %s on %s, got %s", want, holder, balance)
	}
}

func TestReserveAndDistribute(t *testing.T) {
	owner := weavetest.NewCondition()
	anyone := weavetest.NewCondition()
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupReserved,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			// Alice wants her tokens in the wallet right away, Bob
			// leaves his in custody.
			{SharePercent: 400000000, Beneficiary: alice, PreferClaimed: true},
			{SharePercent: 400000000, Beneficiary: bob},
		},
	})

	f.deliver(t, owner, &tokenstore.ReserveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(1000, 0, "TKN"),
	})

	f.deliver(t, anyone, &tokenstore.DistributeReservedMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
	})

	f.assertWallet(t, alice, coin.NewCoin(400, 0, "TKN"))
	f.assertUnclaimed(t, 1, bob, coin.NewCoin(400, 0, "TKN"))
	// The unallocated 20% belong to the domain owner.
	f.assertUnclaimed(t, 1, owner.Address(), coin.NewCoin(200, 0, "TKN"))

	// The tally is consumed, a second distribution has nothing to do.
	_, err := f.rt.Deliver(f.ctx(anyone), f.db, &weavetest.Tx{Msg: &tokenstore.DistributeReservedMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
	}})
	if !errors.ErrEmpty.Is(err) {
		t.Fatalf("want empty, got %+v", err)
	}
}

func TestDistributeReservedToTargetDomain(t *testing.T) {
	owner := weavetest.NewCondition()
	partner := weavetest.NewCondition()
	anyone := weavetest.NewCondition()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)
	f.registerDomain(t, partner, 2)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupReserved,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 300000000, TargetDomainID: 2},
		},
	})
	f.deliver(t, owner, &tokenstore.ReserveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(1000, 0, "TKN"),
	})
	f.deliver(t, anyone, &tokenstore.DistributeReservedMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
	})

	// The partner share is minted in the partner domain token store, to
	// the partner domain owner.
	f.assertUnclaimed(t, 2, partner.Address(), coin.NewCoin(300, 0, "TKN"))
	f.assertUnclaimed(t, 1, owner.Address(), coin.NewCoin(700, 0, "TKN"))
	f.assertUnclaimed(t, 2, owner.Address(), coin.NewCoin(0, 0, "TKN"))

	// A share targeting a domain that was never registered fails the
	// whole distribution.
	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 2,
		GroupID:      splits.GroupReserved,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 300000000, TargetDomainID: 9},
		},
	})
	f.deliver(t, owner, &tokenstore.ReserveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(10, 0, "TKN"),
	})
	_, err := f.rt.Deliver(f.ctx(anyone), f.db, &weavetest.Tx{Msg: &tokenstore.DistributeReservedMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 2,
	}})
	if !payout.ErrNoEntryPoint.Is(err) {
		t.Fatalf("want no entry point, got %+v", err)
	}
}

func TestReserveAuthorization(t *testing.T) {
	owner := weavetest.NewCondition()
	operator := weavetest.NewCondition()
	stranger := weavetest.NewCondition()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	// A stranger cannot reserve.
	_, err := f.rt.Deliver(f.ctx(stranger), f.db, &weavetest.Tx{Msg: &tokenstore.ReserveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(10, 0, "TKN"),
	}})
	if !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}

	// An operator granted the reserve permission can.
	f.deliver(t, owner, &operators.SetOperatorsMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Operators: []*operators.Operator{
			{
				Operator:          operator.Address(),
				DomainID:          1,
				PermissionIndexes: []uint32{operators.ReserveTokens},
			},
		},
	})
	f.deliver(t, operator, &tokenstore.ReserveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(10, 0, "TKN"),
	})

	reserved, err := f.ctrl.Reserved(f.db, 1)
	if err != nil {
		t.Fatalf("reserved: %s", err)
	}
	if reserved == nil || !reserved.Equals(coin.NewCoin(10, 0, "TKN")) {
		t.Fatalf("want 10 TKN reserved, got %s", reserved)
	}
}

func TestClaim(t *testing.T) {
	owner := weavetest.NewCondition()
	holder := weavetest.NewCondition()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupReserved,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 1000000000, Beneficiary: holder.Address()},
		},
	})
	f.deliver(t, owner, &tokenstore.ReserveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(100, 0, "TKN"),
	})
	f.deliver(t, owner, &tokenstore.DistributeReservedMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
	})
	f.assertUnclaimed(t, 1, holder.Address(), coin.NewCoin(100, 0, "TKN"))

	// Claiming a part moves it into the wallet.
	f.deliver(t, holder, &tokenstore.ClaimMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(30, 0, "TKN"),
	})
	f.assertWallet(t, holder.Address(), coin.NewCoin(30, 0, "TKN"))
	f.assertUnclaimed(t, 1, holder.Address(), coin.NewCoin(70, 0, "TKN"))

	// Claiming more than the balance fails.
	_, err := f.rt.Deliver(f.ctx(holder), f.db, &weavetest.Tx{Msg: &tokenstore.ClaimMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(500, 0, "TKN"),
	}})
	if !errors.ErrAmount.Is(err) {
		t.Fatalf("want an amount error, got %+v", err)
	}

	// Claiming without an amount claims the rest.
	f.deliver(t, holder, &tokenstore.ClaimMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
	})
	f.assertWallet(t, holder.Address(), coin.NewCoin(100, 0, "TKN"))
	f.assertUnclaimed(t, 1, holder.Address(), coin.NewCoin(0, 0, "TKN"))
}
