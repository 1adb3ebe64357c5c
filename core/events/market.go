package events

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"justfriends/core/types"
)

const (
	// TypeContentCreated is emitted when a creator posts a new content hash.
	TypeContentCreated = "market.content.created"
	// TypeUpvoted is emitted when a reader upvotes a piece of content.
	TypeUpvoted = "market.content.upvoted"
	// TypeDownvoted is emitted when a reader downvotes a piece of content.
	TypeDownvoted = "market.content.downvoted"
	// TypeAccessPurchased is emitted when access units are bought along the
	// bonding curve.
	TypeAccessPurchased = "market.access.purchased"
	// TypeAccessSold is emitted when access units are sold back to the curve.
	TypeAccessSold = "market.access.sold"
)

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func hexHash(hash [32]byte) string {
	return "0x" + hex.EncodeToString(hash[:])
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// ContentCreated captures a freshly registered content hash.
type ContentCreated struct {
	Hash         [32]byte
	Creator      [20]byte
	BasePrice    *uint256.Int
	IsPaid       bool
	AccessUnitID uint64
}

// EventType implements the Event interface.
func (ContentCreated) EventType() string { return TypeContentCreated }

// Event converts the struct into a types.Event payload.
func (e ContentCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeContentCreated,
		Attributes: map[string]string{
			"hash":         hexHash(e.Hash),
			"creator":      hexAddr(e.Creator),
			"basePrice":    amountString(e.BasePrice),
			"isPaid":       strconv.FormatBool(e.IsPaid),
			"accessUnitId": strconv.FormatUint(e.AccessUnitID, 10),
		},
	}
}

// Voted captures an accepted reaction. Up distinguishes the two event types.
type Voted struct {
	Hash    [32]byte
	Voter   [20]byte
	Creator [20]byte
	Up      bool
}

// EventType implements the Event interface.
func (v Voted) EventType() string {
	if v.Up {
		return TypeUpvoted
	}
	return TypeDownvoted
}

// Event converts the vote into a types.Event payload.
func (v Voted) Event() *types.Event {
	return &types.Event{
		Type: v.EventType(),
		Attributes: map[string]string{
			"hash":    hexHash(v.Hash),
			"voter":   hexAddr(v.Voter),
			"creator": hexAddr(v.Creator),
		},
	}
}

// AccessPurchased captures a buy against the bonding curve. Cost is the curve
// price, Total what the buyer was charged including fees.
type AccessPurchased struct {
	Hash         [32]byte
	Buyer        [20]byte
	Amount       uint64
	Cost         *uint256.Int
	Total        *uint256.Int
	Refund       *uint256.Int
	LoyaltyShare *uint256.Int
}

// EventType implements the Event interface.
func (AccessPurchased) EventType() string { return TypeAccessPurchased }

// Event converts the purchase into a types.Event payload.
func (e AccessPurchased) Event() *types.Event {
	return &types.Event{
		Type: TypeAccessPurchased,
		Attributes: map[string]string{
			"hash":         hexHash(e.Hash),
			"buyer":        hexAddr(e.Buyer),
			"amount":       strconv.FormatUint(e.Amount, 10),
			"cost":         amountString(e.Cost),
			"total":        amountString(e.Total),
			"refund":       amountString(e.Refund),
			"loyaltyShare": amountString(e.LoyaltyShare),
		},
	}
}

// AccessSold captures a sale back to the curve. NetProceeds is what the
// seller received after fees.
type AccessSold struct {
	Hash        [32]byte
	Seller      [20]byte
	Amount      uint64
	NetProceeds *uint256.Int
}

// EventType implements the Event interface.
func (AccessSold) EventType() string { return TypeAccessSold }

// Event converts the sale into a types.Event payload.
func (e AccessSold) Event() *types.Event {
	return &types.Event{
		Type: TypeAccessSold,
		Attributes: map[string]string{
			"hash":        hexHash(e.Hash),
			"seller":      hexAddr(e.Seller),
			"amount":      strconv.FormatUint(e.Amount, 10),
			"netProceeds": amountString(e.NetProceeds),
		},
	}
}
