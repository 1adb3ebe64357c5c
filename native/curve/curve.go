// Package curve prices access units along a quadratic bonding curve.
//
// The price of the k-th unit is floor(base*k^2/Scale). Aggregates are the
// exact sum of those unit prices, computed in closed form: the weighted sum
// of squares minus the per-unit remainders, divided by Scale. Buying and
// selling the same range of units therefore move the same value.
package curve

import (
	"fmt"

	"github.com/holiman/uint256"

	marketerrors "justfriends/core/errors"
)

// Scale is the fixed-point divisor applied to base*k^2.
const Scale = 10_000

// MaxSupply bounds the number of units that can ever be outstanding for a
// single piece of content. Together with MaxBasePrice it keeps every
// intermediate product below 2^250.
const MaxSupply uint64 = 1 << 40

var (
	scale = uint256.NewInt(Scale)
	six   = uint256.NewInt(6)
	one   = uint256.NewInt(1)

	// MaxBasePrice is the largest accepted base price (2^128-1).
	MaxBasePrice = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
)

// ValidateBasePrice rejects base prices that could overflow curve math.
func ValidateBasePrice(base *uint256.Int) error {
	if base == nil {
		return fmt.Errorf("%w: base price required", marketerrors.ErrPriceOutOfRange)
	}
	if base.Gt(MaxBasePrice) {
		return fmt.Errorf("%w: base price %s exceeds %s", marketerrors.ErrPriceOutOfRange, base.Dec(), MaxBasePrice.Dec())
	}
	return nil
}

// sumOfSquares returns 1^2 + 2^2 + ... + n^2. n must not exceed MaxSupply.
func sumOfSquares(n uint64) *uint256.Int {
	a := uint256.NewInt(n)
	b := new(uint256.Int).AddUint64(a, 1)
	c := new(uint256.Int).Mul(a, uint256.NewInt(2))
	c.Add(c, one)
	out := new(uint256.Int).Mul(a, b)
	out.Mul(out, c)
	return out.Div(out, six)
}

// rangeWeight returns the sum of i^2 for i in (from, to].
func rangeWeight(from, to uint64) *uint256.Int {
	hi := sumOfSquares(to)
	lo := sumOfSquares(from)
	return hi.Sub(hi, lo)
}

// remainderSum returns the sum of (b*i^2) mod Scale for i in [1, n], with
// b < Scale. i^2 mod Scale repeats with period Scale, so full periods are
// counted once and multiplied. The result stays below 2^57 for n <= MaxSupply.
func remainderSum(b, n uint64) uint64 {
	if b == 0 || n == 0 {
		return 0
	}
	periods, tail := n/Scale, n%Scale
	var period, partial uint64
	for i := uint64(1); i <= Scale; i++ {
		r := b * (i * i % Scale) % Scale
		period += r
		if i == tail {
			partial = period
		}
	}
	return periods*period + partial
}

// rangeCost returns the sum of floor(base*i^2/Scale) for i in (from, to].
func rangeCost(base *uint256.Int, from, to uint64) *uint256.Int {
	weighted := new(uint256.Int).Mul(base, rangeWeight(from, to))
	b := new(uint256.Int).Mod(base, scale).Uint64()
	dropped := remainderSum(b, to) - remainderSum(b, from)
	weighted.Sub(weighted, uint256.NewInt(dropped))
	return weighted.Div(weighted, scale)
}

// PriceOfUnit returns base*k^2/Scale for the k-th unit, k >= 1.
func PriceOfUnit(base *uint256.Int, k uint64) (*uint256.Int, error) {
	if err := ValidateBasePrice(base); err != nil {
		return nil, err
	}
	if k == 0 || k > MaxSupply {
		return nil, fmt.Errorf("%w: unit index %d", marketerrors.ErrPriceOutOfRange, k)
	}
	kk := new(uint256.Int).Mul(uint256.NewInt(k), uint256.NewInt(k))
	price := new(uint256.Int).Mul(base, kk)
	return price.Div(price, scale), nil
}

// BuyCost prices units supply+1 .. supply+amount as the sum of their unit
// prices.
func BuyCost(base *uint256.Int, supply, amount uint64) (*uint256.Int, error) {
	if err := ValidateBasePrice(base); err != nil {
		return nil, err
	}
	if amount == 0 {
		return new(uint256.Int), nil
	}
	if supply > MaxSupply || amount > MaxSupply-supply {
		return nil, fmt.Errorf("%w: supply %d + amount %d exceeds %d", marketerrors.ErrPriceOutOfRange, supply, amount, MaxSupply)
	}
	return rangeCost(base, supply, supply+amount), nil
}

// SellProceeds prices units supply-amount+1 .. supply. It equals the BuyCost
// of the same range.
func SellProceeds(base *uint256.Int, supply, amount uint64) (*uint256.Int, error) {
	if err := ValidateBasePrice(base); err != nil {
		return nil, err
	}
	if amount > supply {
		return nil, fmt.Errorf("%w: selling %d of %d outstanding units", marketerrors.ErrInsufficientAccess, amount, supply)
	}
	if amount == 0 {
		return new(uint256.Int), nil
	}
	if supply > MaxSupply {
		return nil, fmt.Errorf("%w: supply %d exceeds %d", marketerrors.ErrPriceOutOfRange, supply, MaxSupply)
	}
	return rangeCost(base, supply-amount, supply), nil
}
