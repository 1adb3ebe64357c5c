package creator

import "github.com/holiman/uint256"

// Content is a registered piece of content and the curve that prices access
// to it.
type Content struct {
	Hash         [32]byte     `json:"hash"`
	Creator      [20]byte     `json:"creator"`
	AccessUnitID uint64       `json:"accessUnitId"`
	BasePrice    *uint256.Int `json:"basePrice"`
	IsPaid       bool         `json:"isPaid"`
	// UnitsSold counts units minted along the curve. The creator's genesis
	// unit is not part of it.
	UnitsSold uint64       `json:"unitsSold"`
	Revenue   *uint256.Int `json:"revenue"`
	Upvotes   uint64       `json:"upvotes"`
	Downvotes uint64       `json:"downvotes"`
	PostedAt  uint64       `json:"postedAt"`
}

// Clone returns a deep copy of the content.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	clone := *c
	clone.BasePrice = copyAmount(c.BasePrice)
	clone.Revenue = copyAmount(c.Revenue)
	return &clone
}

// Quote is the breakdown of a prospective trade against the current supply.
type Quote struct {
	Hash   [32]byte `json:"hash"`
	Amount uint64   `json:"amount"`
	Supply uint64   `json:"supply"`
	// Gross is the curve cost for buys and the curve proceeds for sells.
	Gross        *uint256.Int `json:"gross"`
	ProtocolFee  *uint256.Int `json:"protocolFee"`
	CreatorFee   *uint256.Int `json:"creatorFee"`
	LoyaltyShare *uint256.Int `json:"loyaltyShare"`
	// Settlement is what the buyer must attach, or what the seller receives.
	Settlement *uint256.Int `json:"settlement"`
}

// Receipt describes an applied trade.
type Receipt struct {
	Quote
	Trader  [20]byte     `json:"trader"`
	Refund  *uint256.Int `json:"refund"`
	Balance uint64       `json:"balance"`
}

func copyAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
