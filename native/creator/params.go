package creator

import (
	"fmt"

	"justfriends/core/epoch"
	"justfriends/native/fees"
	"justfriends/native/loyalty"
)

// DefaultVoteLoyaltyWeight is awarded per accepted vote.
const DefaultVoteLoyaltyWeight uint64 = 1

// Params are the market parameters fixed at initialisation.
type Params struct {
	Fees                  fees.Policy
	Epochs                epoch.Config
	LeaderboardSize       int
	VoteLoyaltyWeight     uint64
	PurchaseLoyaltyWeight uint64
	// Reserve holds the curve value of every outstanding unit. Sells are
	// paid out of it.
	Reserve [20]byte
}

// DefaultParams is the launch configuration: 5% protocol, 5% creator,
// 3% extra, three leaders per epoch and 100000 heights per epoch.
func DefaultParams() Params {
	policy := fees.Policy{ProtocolPercent: 5, CreatorPercent: 5, ExtraPercent: 3}
	return Params{
		Fees:                  policy,
		Epochs:                epoch.DefaultConfig(),
		LeaderboardSize:       loyalty.DefaultLeaderboardSize,
		VoteLoyaltyWeight:     DefaultVoteLoyaltyWeight,
		PurchaseLoyaltyWeight: policy.ExtraPercent,
	}
}

// Validate checks the parameters are internally consistent.
func (p Params) Validate() error {
	if err := p.Fees.Validate(); err != nil {
		return err
	}
	if err := p.Epochs.Validate(); err != nil {
		return err
	}
	if p.LeaderboardSize <= 0 {
		return fmt.Errorf("creator: leaderboard size must be positive")
	}
	if p.PurchaseLoyaltyWeight > fees.PercentDenominator {
		return fmt.Errorf("creator: purchase loyalty weight must not exceed %d", fees.PercentDenominator)
	}
	if p.Reserve == ([20]byte{}) {
		return fmt.Errorf("creator: market reserve address required")
	}
	if p.Reserve == p.Fees.Destination {
		return fmt.Errorf("creator: market reserve must differ from the protocol fee destination")
	}
	return nil
}
