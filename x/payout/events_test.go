package payout

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/weavetest"
	"github.com/tendermint/tendermint/libs/common"

	"github.com/iov-one/splitpay/x/splits"
)

func TestDistributionTags(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	owner := weavetest.NewCondition().Address()
	caller := weavetest.NewCondition().Address()

	req := Request{
		DomainID: 4,
		GroupID:  splits.GroupPayouts,
		Amount:   coin.NewCoin(100, 0, "IOV"),
		Default:  owner,
		Caller:   caller,
		Memo:     "invoice 7",
		Details:  []byte{0xca, 0xfe},
	}
	res := &Result{
		Distributed: coin.NewCoin(60, 0, "IOV"),
		Remainder:   coin.NewCoin(40, 0, "IOV"),
		Payouts: []Payout{
			{Amount: coin.NewCoin(60, 0, "IOV"), Recipient: alice},
			// A zero share has no recipient.
			{Amount: coin.NewCoin(0, 0, "IOV")},
		},
	}

	want := []common.KVPair{
		{Key: []byte("payout"), Value: []byte(alice.String() + " 60 IOV")},
		{Key: []byte("payout"), Value: []byte("(nil) 0 IOV")},
		{Key: []byte("action"), Value: []byte("distribute_payouts")},
		{Key: []byte("domain"), Value: []byte("4")},
		{Key: []byte("group"), Value: []byte("1")},
		{Key: []byte("distributed"), Value: []byte("60 IOV")},
		{Key: []byte("remainder"), Value: []byte("40 IOV")},
		{Key: []byte("caller"), Value: []byte(caller.String())},
		{Key: []byte("memo"), Value: []byte("invoice 7")},
		{Key: []byte("details"), Value: []byte{0xca, 0xfe}},
	}
	got := DistributionTags("distribute_payouts", req, res)
	if len(got) != len(want) {
		t.Fatalf("want %d tags, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !bytes.Equal(want[i].Key, got[i].Key) || !bytes.Equal(want[i].Value, got[i].Value) {
			t.Errorf("tag %d: want %s=%q, got %s=%q", i, want[i].Key, want[i].Value, got[i].Key, got[i].Value)
		}
	}

	// Memo and details tags are emitted only when set.
	req.Memo = ""
	req.Details = nil
	got = DistributionTags("distribute_payouts", req, res)
	if len(got) != len(want)-2 {
		t.Fatalf("want no memo and details tags, got %v", got)
	}
}
