package fees

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"
)

func testPolicy() Policy {
	var dest [20]byte
	dest[0] = 0xfe
	return Policy{ProtocolPercent: 5, CreatorPercent: 5, ExtraPercent: 3, Destination: dest}
}

func TestApplyBuyAddsFees(t *testing.T) {
	res := testPolicy().ApplyBuy(uint256.NewInt(1_000))
	if res.Protocol.Uint64() != 50 || res.Creator.Uint64() != 50 || res.Extra.Uint64() != 30 {
		t.Fatalf("unexpected split %s/%s/%s", res.Protocol.Dec(), res.Creator.Dec(), res.Extra.Dec())
	}
	if res.Total.Uint64() != 1_100 {
		t.Fatalf("expected total 1100, got %s", res.Total.Dec())
	}
}

func TestApplySellSubtractsFees(t *testing.T) {
	res := testPolicy().ApplySell(uint256.NewInt(1_000))
	if res.Net.Uint64() != 900 {
		t.Fatalf("expected net 900, got %s", res.Net.Dec())
	}
	if res.Fees().Uint64() != 100 {
		t.Fatalf("expected fees 100, got %s", res.Fees().Dec())
	}
}

func TestSplitRoundsDown(t *testing.T) {
	split := testPolicy().Split(uint256.NewInt(19))
	if !split.Protocol.IsZero() || !split.Creator.IsZero() {
		t.Fatalf("expected shares to round to zero, got %s/%s", split.Protocol.Dec(), split.Creator.Dec())
	}
	split = testPolicy().Split(nil)
	if !split.Gross.IsZero() || !split.Fees().IsZero() {
		t.Fatalf("nil gross should produce empty split")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Policy) {}},
		{name: "fees consume everything", mutate: func(p *Policy) { p.ProtocolPercent = 50; p.CreatorPercent = 50 }, wantErr: true},
		{name: "extra above hundred", mutate: func(p *Policy) { p.ExtraPercent = 101 }, wantErr: true},
		{name: "missing destination", mutate: func(p *Policy) { p.Destination = [20]byte{} }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPolicy()
			tc.mutate(&p)
			err := p.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPolicyDecodesFromTOML(t *testing.T) {
	var payload struct {
		Fees Policy `toml:"fees"`
	}
	raw := "[fees]\nprotocol_fee_percent = 5\ncreator_fee_percent = 4\nextra_fee_percent = 3\n"
	if _, err := toml.Decode(raw, &payload); err != nil {
		t.Fatalf("toml decode: %v", err)
	}
	if payload.Fees.ProtocolPercent != 5 || payload.Fees.CreatorPercent != 4 || payload.Fees.ExtraPercent != 3 {
		t.Fatalf("unexpected policy %+v", payload.Fees)
	}
}

func TestTotalsAccumulate(t *testing.T) {
	var totals Totals
	split := testPolicy().Split(uint256.NewInt(200))
	totals.Add(split, split.Protocol)
	totals.Add(split, split.Protocol)
	clone := totals.Clone()
	totals.Gross.SetUint64(0)
	if clone.Gross.Uint64() != 400 || clone.Fee.Uint64() != 20 {
		t.Fatalf("unexpected totals %s/%s", clone.Gross.Dec(), clone.Fee.Dec())
	}
}
