package splits_test

import (
	"context"
	"testing"
	"time"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"

	"github.com/iov-one/splitpay/x/operators"
	"github.com/iov-one/splitpay/x/splits"
)

func TestSetSplitsHandler(t *testing.T) {
	admin := weavetest.NewCondition()
	operator := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	addr1 := weavetest.NewCondition().Address()
	addr2 := weavetest.NewCondition().Address()

	now := time.Now()

	cases := map[string]struct {
		actions []action
	}{
		"creating a group requires the admin signature": {
			actions: []action{
				{
					conditions: []weave.Condition{stranger},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1},
						},
					},
					blockTime:      now,
					wantDeliverErr: errors.ErrUnauthorized,
				},
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1},
						},
					},
					blockTime: now,
				},
			},
		},
		"only the admin can replace an existing group": {
			actions: []action{
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{stranger},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        stranger.Address(),
						Splits: []*splits.Split{
							{SharePercent: 1000000000, Beneficiary: addr2},
						},
					},
					blockTime:      now,
					wantDeliverErr: errors.ErrUnauthorized,
				},
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 1000000000, Beneficiary: addr2},
						},
					},
					blockTime: now,
				},
			},
		},
		"a granted operator can replace splits": {
			actions: []action{
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{admin},
					msg: &operators.SetOperatorsMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Operators: []*operators.Operator{
							{
								Operator:          operator.Address(),
								DomainID:          1,
								PermissionIndexes: []uint32{operators.SetSplits},
							},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{operator},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 700000000, Beneficiary: addr2},
						},
					},
					blockTime: now,
				},
			},
		},
		"an operator grant is scoped to its domain": {
			actions: []action{
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{admin},
					msg: &operators.SetOperatorsMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Operators: []*operators.Operator{
							{
								Operator:          operator.Address(),
								DomainID:          42,
								PermissionIndexes: []uint32{operators.SetSplits},
							},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{operator},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 700000000, Beneficiary: addr2},
						},
					},
					blockTime:      now,
					wantDeliverErr: errors.ErrUnauthorized,
				},
			},
		},
		"a wildcard grant applies to every domain": {
			actions: []action{
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{admin},
					msg: &operators.SetOperatorsMsg{
						Metadata: &weave.Metadata{Schema: 1},
						Operators: []*operators.Operator{
							{
								Operator:          operator.Address(),
								DomainID:          0,
								PermissionIndexes: []uint32{operators.SetSplits},
							},
						},
					},
					blockTime: now,
				},
				{
					conditions: []weave.Condition{operator},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 700000000, Beneficiary: addr2},
						},
					},
					blockTime: now,
				},
			},
		},
		"a locked split cannot be removed, only extended": {
			actions: []action{
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1, LockedUntil: weave.AsUnixTime(now.Add(time.Hour))},
							{SharePercent: 500000000, Beneficiary: addr2},
						},
					},
					blockTime: now,
				},
				// Dropping the locked split must fail.
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 1000000000, Beneficiary: addr2},
						},
					},
					blockTime:      now,
					wantDeliverErr: errors.ErrState,
				},
				// Shortening the lock must fail as well.
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1, LockedUntil: weave.AsUnixTime(now.Add(time.Minute))},
							{SharePercent: 500000000, Beneficiary: addr2},
						},
					},
					blockTime:      now,
					wantDeliverErr: errors.ErrState,
				},
				// Extending the lock is allowed.
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 500000000, Beneficiary: addr1, LockedUntil: weave.AsUnixTime(now.Add(2 * time.Hour))},
							{SharePercent: 500000000, Beneficiary: addr2},
						},
					},
					blockTime: now,
				},
				// Once the lock expired the split can be removed.
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 1000000000, Beneficiary: addr2},
						},
					},
					blockTime: now.Add(3 * time.Hour),
				},
			},
		},
		"an oversubscribed split list is rejected on write": {
			actions: []action{
				{
					conditions: []weave.Condition{admin},
					msg: &splits.SetSplitsMsg{
						Metadata:     &weave.Metadata{Schema: 1},
						DomainID:     1,
						GenerationID: 1,
						GroupID:      splits.GroupPayouts,
						Admin:        admin.Address(),
						Splits: []*splits.Split{
							{SharePercent: 900000000, Beneficiary: addr1},
							{SharePercent: 200000000, Beneficiary: addr2},
						},
					},
					blockTime:      now,
					wantCheckErr:   errors.ErrMsg,
					wantDeliverErr: errors.ErrMsg,
				},
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "splits", "operators")

			rt := app.NewRouter()
			auth := &weavetest.CtxAuth{Key: "auth"}
			splits.RegisterRoutes(rt, auth, operators.NewController())
			operators.RegisterRoutes(rt, auth)

			for i, a := range tc.actions {
				cache := db.CacheWrap()
				if _, err := rt.Check(a.ctx(), cache, a.tx()); !a.wantCheckErr.Is(err) {
					t.Logf("want: %+v", a.wantCheckErr)
					t.Logf(" got: %+v", err)
					t.Fatalf("action %d check (%T)", i, a.msg)
				}
				cache.Discard()
				if a.wantCheckErr != nil {
					continue
				}
				if _, err := rt.Deliver(a.ctx(), db, a.tx()); !a.wantDeliverErr.Is(err) {
					t.Logf("want: %+v", a.wantDeliverErr)
					t.Logf(" got: %+v", err)
					t.Fatalf("action %d delivery (%T)", i, a.msg)
				}
			}
		})
	}
}

type action struct {
	conditions     []weave.Condition
	msg            weave.Msg
	blockTime      time.Time
	wantCheckErr   *errors.Error
	wantDeliverErr *errors.Error
}

func (a *action) tx() weave.Tx {
	return &weavetest.Tx{Msg: a.msg}
}

func (a *action) ctx() weave.Context {
	ctx := weave.WithHeight(context.Background(), 100)
	ctx = weave.WithChainID(ctx, "testchain-123")
	ctx = weave.WithBlockTime(ctx, a.blockTime)
	auth := &weavetest.CtxAuth{Key: "auth"}
	return auth.SetConditions(ctx, a.conditions...)
}
