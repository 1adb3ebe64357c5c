package fees

import (
	"fmt"

	"github.com/holiman/uint256"
)

// PercentDenominator is the divisor for every configured fee percentage.
const PercentDenominator = 100

var hundred = uint256.NewInt(PercentDenominator)

// Policy captures the fee percentages applied to every trade and where the
// protocol share is routed.
type Policy struct {
	ProtocolPercent uint64   `toml:"protocol_fee_percent" yaml:"protocol_fee_percent" json:"protocolFeePercent"`
	CreatorPercent  uint64   `toml:"creator_fee_percent" yaml:"creator_fee_percent" json:"creatorFeePercent"`
	ExtraPercent    uint64   `toml:"extra_fee_percent" yaml:"extra_fee_percent" json:"extraFeePercent"`
	Destination     [20]byte `toml:"-" yaml:"-" json:"-"`
}

// Validate ensures the percentages leave something for the seller.
func (p Policy) Validate() error {
	if p.ProtocolPercent > PercentDenominator || p.CreatorPercent > PercentDenominator || p.ExtraPercent > PercentDenominator {
		return fmt.Errorf("fees: percentages must not exceed %d", PercentDenominator)
	}
	if p.ProtocolPercent+p.CreatorPercent >= PercentDenominator {
		return fmt.Errorf("fees: protocol + creator percent must be below %d", PercentDenominator)
	}
	if p.Destination == ([20]byte{}) {
		return fmt.Errorf("fees: protocol fee destination required")
	}
	return nil
}

// Split is the per-trade fee breakdown for a gross curve amount.
type Split struct {
	Gross    *uint256.Int
	Protocol *uint256.Int
	Creator  *uint256.Int
	// Extra is the loyal-fan share of the gross amount. It is reported, not
	// charged.
	Extra *uint256.Int
}

// Fees returns protocol + creator.
func (s Split) Fees() *uint256.Int {
	return new(uint256.Int).Add(orZero(s.Protocol), orZero(s.Creator))
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func share(gross *uint256.Int, percent uint64) *uint256.Int {
	if gross == nil || gross.IsZero() || percent == 0 {
		return new(uint256.Int)
	}
	out := new(uint256.Int).Mul(gross, uint256.NewInt(percent))
	return out.Div(out, hundred)
}

// Split divides gross into the configured shares, rounding each down.
func (p Policy) Split(gross *uint256.Int) Split {
	g := new(uint256.Int)
	if gross != nil {
		g.Set(gross)
	}
	return Split{
		Gross:    g,
		Protocol: share(g, p.ProtocolPercent),
		Creator:  share(g, p.CreatorPercent),
		Extra:    share(g, p.ExtraPercent),
	}
}

// BuyResult is what a buyer owes for a curve cost.
type BuyResult struct {
	Split
	Total *uint256.Int
}

// ApplyBuy adds the protocol and creator shares on top of the curve cost.
func (p Policy) ApplyBuy(cost *uint256.Int) BuyResult {
	split := p.Split(cost)
	total := new(uint256.Int).Add(split.Gross, split.Fees())
	return BuyResult{Split: split, Total: total}
}

// SellResult is what a seller receives for curve proceeds.
type SellResult struct {
	Split
	Net *uint256.Int
}

// ApplySell subtracts the protocol and creator shares from the curve
// proceeds. Validate guarantees the fees never exceed the proceeds.
func (p Policy) ApplySell(proceeds *uint256.Int) SellResult {
	split := p.Split(proceeds)
	net := new(uint256.Int).Sub(split.Gross, split.Fees())
	return SellResult{Split: split, Net: net}
}

// Totals aggregates fee accounting for a wallet.
type Totals struct {
	Wallet [20]byte
	Gross  *uint256.Int
	Fee    *uint256.Int
}

// Add accumulates a split into the totals.
func (t *Totals) Add(split Split, fee *uint256.Int) {
	if t.Gross == nil {
		t.Gross = new(uint256.Int)
	}
	if t.Fee == nil {
		t.Fee = new(uint256.Int)
	}
	t.Gross.Add(t.Gross, orZero(split.Gross))
	t.Fee.Add(t.Fee, orZero(fee))
}

// Clone returns a copy of the totals structure with duplicated values.
func (t Totals) Clone() Totals {
	clone := Totals{Wallet: t.Wallet}
	if t.Gross != nil {
		clone.Gross = new(uint256.Int).Set(t.Gross)
	}
	if t.Fee != nil {
		clone.Fee = new(uint256.Int).Set(t.Fee)
	}
	return clone
}
