package terminal_test

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
	"github.com/iov-one/splitpay/x/payout"
	"github.com/iov-one/splitpay/x/splits"
	"github.com/iov-one/splitpay/x/terminal"
)

type fixture struct {
	db     weave.CacheableKVStore
	rt     *app.Router
	auth   *weavetest.CtxAuth
	ctrl   cash.BaseController
	allocs *payout.AllocatorRegistry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := store.MemStore()
	migration.MustInitPkg(db, "cash", "splits", "directory", "terminal")

	auth := &weavetest.CtxAuth{Key: "auth"}
	ctrl := cash.NewController(cash.NewBucket())
	keeper := directory.NewKeeper()
	keeper.RegisterKind("terminal", terminal.EntryPoint(ctrl))
	allocs := payout.NewAllocatorRegistry()

	rt := app.NewRouter()
	directory.RegisterRoutes(rt, auth, keeper)
	splits.RegisterRoutes(rt, auth, nil)
	terminal.RegisterRoutes(rt, auth, ctrl, keeper, allocs)

	return &fixture{
		db:     db,
		rt:     rt,
		auth:   auth,
		ctrl:   ctrl,
		allocs: allocs,
	}
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

func (f *fixture) assertBalance(t *testing.T, addr weave.Address, want coin.Coin) {
	t.Helper()
	balance, err := f.ctrl.Balance(f.db, addr)
	if err != nil && !errors.ErrNotFound.Is(err) {
		t.Fatalf("cannot get balance of %s: %s", addr, err)
	}
	if want.IsZero() {
		if balance.IsPositive() {
			t.Errorf("want no funds on %s, got %s", addr, balance)
		}
		return
	}
	if !balance.Contains(want) {
		t.Errorf("want %s on %s, got %s", want, addr, balance)
	}
}

func (f *fixture) registerDomain(t *testing.T, owner weave.Condition, domainID int64) {
	t.Helper()
	f.deliver(t, owner, &directory.SetEntryPointMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: domainID,
		Kind:     "terminal",
	})
}

func TestDepositAndDistribute(t *testing.T) {
	owner := weavetest.NewCondition()
	payer := weavetest.NewCondition()
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupPayouts,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 500000000, Beneficiary: alice},
			{SharePercent: 500000000, Beneficiary: bob},
		},
	})

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(20000, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(20000, 0, "IOV"),
		Memo:     "september invoice",
	})
	f.assertBalance(t, terminal.DomainAccount(1), coin.NewCoin(20000, 0, "IOV"))

	f.deliver(t, payer, &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(20000, 0, "IOV"),
	})

	f.assertBalance(t, alice, coin.NewCoin(10000, 0, "IOV"))
	f.assertBalance(t, bob, coin.NewCoin(10000, 0, "IOV"))
	f.assertBalance(t, terminal.DomainAccount(1), coin.NewCoin(0, 0, "IOV"))
	f.assertBalance(t, owner.Address(), coin.NewCoin(0, 0, "IOV"))
}

func TestDistributeRemainderGoesToOwner(t *testing.T) {
	owner := weavetest.NewCondition()
	payer := weavetest.NewCondition()
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	carl := weavetest.NewCondition().Address()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupPayouts,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 333333333, Beneficiary: alice},
			{SharePercent: 333333333, Beneficiary: bob},
			{SharePercent: 333333333, Beneficiary: carl},
		},
	})

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(0, 100, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(0, 100, "IOV"),
	})
	f.deliver(t, payer, &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(0, 100, "IOV"),
	})

	// Each share floors to 33 and the single leftover unit belongs to the
	// domain owner.
	f.assertBalance(t, alice, coin.NewCoin(0, 33, "IOV"))
	f.assertBalance(t, bob, coin.NewCoin(0, 33, "IOV"))
	f.assertBalance(t, carl, coin.NewCoin(0, 33, "IOV"))
	f.assertBalance(t, owner.Address(), coin.NewCoin(0, 1, "IOV"))
	f.assertBalance(t, terminal.DomainAccount(1), coin.NewCoin(0, 0, "IOV"))
}

func TestDistributeWithoutSplitsPaysTheOwner(t *testing.T) {
	owner := weavetest.NewCondition()
	payer := weavetest.NewCondition()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(5, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(5, 0, "IOV"),
	})
	f.deliver(t, payer, &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(5, 0, "IOV"),
	})

	f.assertBalance(t, owner.Address(), coin.NewCoin(5, 0, "IOV"))
}

func TestDistributeIntoAnotherDomain(t *testing.T) {
	owner := weavetest.NewCondition()
	otherOwner := weavetest.NewCondition()
	payer := weavetest.NewCondition()
	alice := weavetest.NewCondition().Address()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)
	f.registerDomain(t, otherOwner, 2)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupPayouts,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 600000000, TargetDomainID: 2},
			{SharePercent: 400000000, Beneficiary: alice},
		},
	})

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(100, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(100, 0, "IOV"),
	})
	f.deliver(t, payer, &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(100, 0, "IOV"),
	})

	f.assertBalance(t, terminal.DomainAccount(2), coin.NewCoin(60, 0, "IOV"))
	f.assertBalance(t, alice, coin.NewCoin(40, 0, "IOV"))
	f.assertBalance(t, terminal.DomainAccount(1), coin.NewCoin(0, 0, "IOV"))
}

func TestDistributeEmitsPayoutTags(t *testing.T) {
	owner := weavetest.NewCondition()
	payer := weavetest.NewCondition()
	alice := weavetest.NewCondition().Address()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupPayouts,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 600000000, Beneficiary: alice},
		},
	})

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(100, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(100, 0, "IOV"),
	})
	res, err := f.rt.Deliver(f.ctx(payer), f.db, &weavetest.Tx{Msg: &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(100, 0, "IOV"),
		Memo:         "payday",
		Details:      []byte("ref-5"),
	}})
	if err != nil {
		t.Fatalf("cannot distribute: %+v", err)
	}

	var payouts []string
	byKey := make(map[string]string)
	for _, tag := range res.Tags {
		if string(tag.Key) == "payout" {
			payouts = append(payouts, string(tag.Value))
			continue
		}
		byKey[string(tag.Key)] = string(tag.Value)
	}
	// One payout tag per split, in split order.
	if len(payouts) != 1 {
		t.Fatalf("want one payout tag, got %v", payouts)
	}
	if want := alice.String() + " 60 IOV"; payouts[0] != want {
		t.Errorf("want payout tag %q, got %q", want, payouts[0])
	}
	if got := byKey["memo"]; got != "payday" {
		t.Errorf("want the memo carried into the tags, got %q", got)
	}
	if got := byKey["details"]; got != "ref-5" {
		t.Errorf("want the details carried into the tags, got %q", got)
	}
	if got := byKey["caller"]; got != payer.Address().String() {
		t.Errorf("want the signer as the caller tag, got %q", got)
	}
	if got := byKey["remainder"]; got != "40 IOV" {
		t.Errorf("want 40 IOV remainder tag, got %q", got)
	}
}

func TestDistributeRequiresFunds(t *testing.T) {
	owner := weavetest.NewCondition()
	payer := weavetest.NewCondition()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(10, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(10, 0, "IOV"),
	})

	// The domain holds 10, distributing 11 must fail before any funds
	// move.
	cache := f.db.CacheWrap()
	_, err := f.rt.Deliver(f.ctx(payer), cache, &weavetest.Tx{Msg: &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(11, 0, "IOV"),
	}})
	cache.Discard()
	if !errors.ErrAmount.Is(err) {
		t.Fatalf("want an amount error, got %+v", err)
	}
	f.assertBalance(t, terminal.DomainAccount(1), coin.NewCoin(10, 0, "IOV"))
}

func TestDepositRequiresRegisteredDomain(t *testing.T) {
	payer := weavetest.NewCondition()

	f := newFixture(t)

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(10, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	_, err := f.rt.Deliver(f.ctx(payer), f.db, &weavetest.Tx{Msg: &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 9,
		Amount:   coin.NewCoinp(10, 0, "IOV"),
	}})
	if !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestDistributeThroughAllocator(t *testing.T) {
	owner := weavetest.NewCondition()
	payer := weavetest.NewCondition()
	allocAddr := weavetest.NewCondition().Address()

	f := newFixture(t)
	f.registerDomain(t, owner, 1)

	recorder := &recordingAllocator{}
	f.allocs.Register(allocAddr, recorder)

	f.deliver(t, owner, &splits.SetSplitsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		GroupID:      splits.GroupPayouts,
		Admin:        owner.Address(),
		Splits: []*splits.Split{
			{SharePercent: 1000000000, Allocator: allocAddr},
		},
	})

	if err := f.ctrl.CoinMint(f.db, payer.Address(), coin.NewCoin(100, 0, "IOV")); err != nil {
		t.Fatalf("cannot mint: %s", err)
	}
	f.deliver(t, payer, &terminal.DepositMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Amount:   coin.NewCoinp(100, 0, "IOV"),
	})
	f.deliver(t, payer, &terminal.DistributePayoutsMsg{
		Metadata:     &weave.Metadata{Schema: 1},
		DomainID:     1,
		GenerationID: 1,
		Amount:       coin.NewCoinp(100, 0, "IOV"),
	})

	// The allocator address is funded before its callback runs.
	f.assertBalance(t, allocAddr, coin.NewCoin(100, 0, "IOV"))
	if len(recorder.allocations) != 1 {
		t.Fatalf("want one allocation, got %d", len(recorder.allocations))
	}
	if got := recorder.allocations[0].DomainID; got != 1 {
		t.Errorf("want allocation from domain 1, got %d", got)
	}
}

type recordingAllocator struct {
	allocations []payout.Allocation
}

func (r *recordingAllocator) Allocate(ctx weave.Context, db weave.KVStore, a payout.Allocation) error {
	r.allocations = append(r.allocations, a)
	return nil
}
