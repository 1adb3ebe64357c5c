package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"justfriends/core/types"
)

const (
	// TypeLoyaltyEpochClosed is emitted the first time a request for a creator
	// observes a later epoch than the one currently open.
	TypeLoyaltyEpochClosed = "loyalty.epoch.closed"
	// TypeLoyaltyAwarded is emitted whenever a fan earns loyalty points.
	TypeLoyaltyAwarded = "loyalty.points.awarded"
)

// LoyaltyEpochClosed records the final state of a creator's epoch.
type LoyaltyEpochClosed struct {
	Creator [20]byte
	Epoch   uint64
	Revenue *uint256.Int
	Leaders int
}

// EventType implements the Event interface.
func (LoyaltyEpochClosed) EventType() string { return TypeLoyaltyEpochClosed }

// Event converts the closure into a types.Event payload.
func (e LoyaltyEpochClosed) Event() *types.Event {
	return &types.Event{
		Type: TypeLoyaltyEpochClosed,
		Attributes: map[string]string{
			"creator": hexAddr(e.Creator),
			"epoch":   strconv.FormatUint(e.Epoch, 10),
			"revenue": amountString(e.Revenue),
			"leaders": strconv.Itoa(e.Leaders),
		},
	}
}

// LoyaltyAwarded captures a score increase for a fan.
type LoyaltyAwarded struct {
	Creator [20]byte
	Fan     [20]byte
	Epoch   uint64
	Points  uint64
	Score   uint64
	Rank    int
}

// EventType implements the Event interface.
func (LoyaltyAwarded) EventType() string { return TypeLoyaltyAwarded }

// Event converts the award into a types.Event payload. Rank is -1 when the
// fan did not make the leader list.
func (e LoyaltyAwarded) Event() *types.Event {
	return &types.Event{
		Type: TypeLoyaltyAwarded,
		Attributes: map[string]string{
			"creator": hexAddr(e.Creator),
			"fan":     hexAddr(e.Fan),
			"epoch":   strconv.FormatUint(e.Epoch, 10),
			"points":  strconv.FormatUint(e.Points, 10),
			"score":   strconv.FormatUint(e.Score, 10),
			"rank":    strconv.Itoa(e.Rank),
		},
	}
}
