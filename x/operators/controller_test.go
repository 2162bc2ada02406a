package operators

import (
	"context"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
)

func TestPack(t *testing.T) {
	packed, err := Pack(SetSplits, ReserveTokens)
	if err != nil {
		t.Fatalf("pack: %s", err)
	}
	if !Has(packed, SetSplits) {
		t.Error("missing set splits permission")
	}
	if !Has(packed, ReserveTokens) {
		t.Error("missing reserve tokens permission")
	}
	if Has(packed, 17) {
		t.Error("unexpected permission")
	}

	if _, err := Pack(64); !errors.ErrInput.Is(err) {
		t.Errorf("want an input error for an out of range index, got %+v", err)
	}
	if Has(packed, 64) {
		t.Error("out of range index must never match")
	}
}

func TestCanOperate(t *testing.T) {
	account := weavetest.NewCondition()
	operator := weavetest.NewCondition().Address()
	other := weavetest.NewCondition().Address()

	db := store.MemStore()
	migration.MustInitPkg(db, "operators")

	rt := app.NewRouter()
	auth := &weavetest.CtxAuth{Key: "auth"}
	RegisterRoutes(rt, auth)

	ctx := weave.WithHeight(context.Background(), 100)
	ctx = weave.WithChainID(ctx, "testchain-123")
	ctx = auth.SetConditions(ctx, account)

	deliver := func(msg weave.Msg) {
		t.Helper()
		if _, err := rt.Deliver(ctx, db, &weavetest.Tx{Msg: msg}); err != nil {
			t.Fatalf("cannot deliver %T: %s", msg, err)
		}
	}

	deliver(&SetOperatorsMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Operators: []*Operator{
			{Operator: operator, DomainID: 1, PermissionIndexes: []uint32{SetSplits}},
			{Operator: operator, DomainID: 0, PermissionIndexes: []uint32{ReserveTokens}},
		},
	})

	ctrl := NewController()

	assertCan := func(op weave.Address, domainID int64, perm uint32, want bool) {
		t.Helper()
		got, err := ctrl.CanOperate(db, account.Address(), op, domainID, perm)
		if err != nil {
			t.Fatalf("can operate: %s", err)
		}
		if got != want {
			t.Errorf("domain %d permission %d: want %v, got %v", domainID, perm, want, got)
		}
	}

	// Exact domain grant.
	assertCan(operator, 1, SetSplits, true)
	// The grant does not leak into other domains.
	assertCan(operator, 2, SetSplits, false)
	// Wildcard grant applies everywhere.
	assertCan(operator, 1, ReserveTokens, true)
	assertCan(operator, 7, ReserveTokens, true)
	// Ungranted address has no permissions.
	assertCan(other, 1, SetSplits, false)

	// An empty permission list revokes the grant.
	deliver(&SetOperatorsMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Operators: []*Operator{
			{Operator: operator, DomainID: 1},
		},
	})
	assertCan(operator, 1, SetSplits, false)
	// The wildcard grant is a separate grant and survives.
	assertCan(operator, 1, ReserveTokens, true)
}
