package directory

import (
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"

	"github.com/iov-one/splitpay/x/payout"
)

type noopEntryPoint struct{}

func (noopEntryPoint) Pay(ctx weave.Context, db weave.KVStore, p payout.Payment) error {
	return nil
}

func TestSetEntryPointHandler(t *testing.T) {
	owner := weavetest.NewCondition()
	stranger := weavetest.NewCondition()

	db := store.MemStore()
	migration.MustInitPkg(db, "directory")

	keeper := NewKeeper()
	keeper.RegisterKind("terminal", noopEntryPoint{})
	keeper.RegisterKind("tokenstore", noopEntryPoint{})

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth, keeper)

	asCtx := func(conds ...weave.Condition) weave.Context {
		ctx := weave.WithHeight(context.Background(), 100)
		ctx = weave.WithChainID(ctx, "testchain-123")
		return auth.SetConditions(ctx, conds...)
	}

	// Unknown kinds are refused before they reach the state.
	_, err := rt.Check(asCtx(owner), db, &weavetest.Tx{Msg: &SetEntryPointMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Kind:     "teleporter",
	}})
	if !errors.ErrInput.Is(err) {
		t.Fatalf("want an input error for an unknown kind, got %+v", err)
	}

	// First registration claims the domain.
	_, err = rt.Deliver(asCtx(owner), db, &weavetest.Tx{Msg: &SetEntryPointMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Kind:     "terminal",
	}})
	if err != nil {
		t.Fatalf("cannot register: %s", err)
	}

	got, err := keeper.OwnerOf(db, 1)
	if err != nil {
		t.Fatalf("owner of: %s", err)
	}
	if !got.Equals(owner.Address()) {
		t.Fatalf("want owner %s, got %s", owner.Address(), got)
	}

	if _, err := keeper.EntryPointOf(db, 1); err != nil {
		t.Fatalf("entry point of: %s", err)
	}
	if _, err := keeper.EntryPointOf(db, 99); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found for an unregistered domain, got %+v", err)
	}

	// Only the owner can replace a registration.
	_, err = rt.Deliver(asCtx(stranger), db, &weavetest.Tx{Msg: &SetEntryPointMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Kind:     "tokenstore",
	}})
	if !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}

	_, err = rt.Deliver(asCtx(owner), db, &weavetest.Tx{Msg: &SetEntryPointMsg{
		Metadata: &weave.Metadata{Schema: 1},
		DomainID: 1,
		Kind:     "tokenstore",
	}})
	if err != nil {
		t.Fatalf("owner cannot replace: %s", err)
	}
}
