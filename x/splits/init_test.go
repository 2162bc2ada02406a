package splits

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
)

func TestGenesisKey(t *testing.T) {
	const genesis = `
		{
			"splits": [
				{
					"domain_id": 1,
					"generation_id": 1,
					"group_id": 1,
					"admin": "E94323317C46BDA2268FA3698BAF4F95B893E8C7",
					"splits": [
						{"share_percent": 600000000, "beneficiary": "E94323317C46BDA2268FA3698BAF4F95B893E8C7"},
						{"share_percent": 400000000, "beneficiary": "FE5526DE08337DFEF5CF45EF3ED8C577B854DE34", "prefer_claimed": true}
					]
				}
			]
		}
	`
	addr1, _ := hex.DecodeString("E94323317C46BDA2268FA3698BAF4F95B893E8C7")
	addr2, _ := hex.DecodeString("FE5526DE08337DFEF5CF45EF3ED8C577B854DE34")

	var opts weave.Options
	if err := json.Unmarshal([]byte(genesis), &opts); err != nil {
		t.Fatalf("cannot unmarshal genesis: %s", err)
	}

	db := store.MemStore()
	migration.MustInitPkg(db, "splits")
	var ini Initializer
	if err := ini.FromGenesis(opts, weave.GenesisParams{}, db); err != nil {
		t.Fatalf("cannot load genesis: %s", err)
	}

	var group SplitGroup
	if err := NewSplitGroupBucket().One(db, GroupKey(1, 1, 1), &group); err != nil {
		t.Fatalf("cannot fetch split group: %s", err)
	}

	if !group.Admin.Equals(addr1) {
		t.Fatalf("unexpected admin address: %q", group.Admin)
	}
	if n := len(group.Splits); n != 2 {
		t.Fatalf("expected two splits, got %d", n)
	}
	if s := group.Splits[0]; s.SharePercent != 600000000 {
		t.Fatalf("want share percent 600000000, got %d", s.SharePercent)
	}
	if s := group.Splits[0]; !s.Beneficiary.Equals(addr1) {
		t.Fatalf("unexpected beneficiary: %q", s.Beneficiary)
	}
	if s := group.Splits[1]; !s.Beneficiary.Equals(addr2) {
		t.Fatalf("unexpected beneficiary: %q", s.Beneficiary)
	}
	if s := group.Splits[1]; !s.PreferClaimed {
		t.Fatal("want the second split to prefer claimed delivery")
	}
}
