package config

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"justfriends/core/epoch"
	"justfriends/crypto"
	"justfriends/native/creator"
	"justfriends/native/fees"
)

// Well-known labels for the system accounts when none are configured.
const (
	ProtocolAccountLabel = "justfriends/protocol-fees"
	ReserveAccountLabel  = "justfriends/market-reserve"
)

// Market holds the immutable marketplace parameters.
type Market struct {
	ProtocolFeePercent uint64 `toml:"ProtocolFeePercent" yaml:"protocolFeePercent"`
	CreatorFeePercent  uint64 `toml:"CreatorFeePercent" yaml:"creatorFeePercent"`
	ExtraFeePercent    uint64 `toml:"ExtraFeePercent" yaml:"extraFeePercent"`
	VoteLoyaltyWeight  uint64 `toml:"VoteLoyaltyWeight" yaml:"voteLoyaltyWeight"`
	// PurchaseLoyaltyWeight defaults to ExtraFeePercent when zero.
	PurchaseLoyaltyWeight uint64 `toml:"PurchaseLoyaltyWeight" yaml:"purchaseLoyaltyWeight"`
	LeaderboardSize       int    `toml:"LeaderboardSize" yaml:"leaderboardSize"`
	EpochLength           uint64 `toml:"EpochLength" yaml:"epochLength"`
	ProtocolFeeAddress    string `toml:"ProtocolFeeAddress" yaml:"protocolFeeAddress"`
	ReserveAddress        string `toml:"ReserveAddress" yaml:"reserveAddress"`
}

// Allocation credits an identity with a starting balance.
type Allocation struct {
	Address string `toml:"Address" yaml:"address"`
	Balance string `toml:"Balance" yaml:"balance"`
}

func systemAddress(label string) string {
	id := crypto.DeriveIdentity(label)
	return crypto.MustNewAddress(crypto.JFPrefix, id[:]).String()
}

// DefaultMarket returns the launch market parameters.
func DefaultMarket() Market {
	params := creator.DefaultParams()
	return Market{
		ProtocolFeePercent:    params.Fees.ProtocolPercent,
		CreatorFeePercent:     params.Fees.CreatorPercent,
		ExtraFeePercent:       params.Fees.ExtraPercent,
		VoteLoyaltyWeight:     params.VoteLoyaltyWeight,
		PurchaseLoyaltyWeight: params.PurchaseLoyaltyWeight,
		LeaderboardSize:       params.LeaderboardSize,
		EpochLength:           params.Epochs.Length,
		ProtocolFeeAddress:    systemAddress(ProtocolAccountLabel),
		ReserveAddress:        systemAddress(ReserveAccountLabel),
	}
}

func (m *Market) applyDefaults() {
	if m.EpochLength == 0 {
		m.EpochLength = epoch.DefaultConfig().Length
	}
	if m.LeaderboardSize == 0 {
		m.LeaderboardSize = creator.DefaultParams().LeaderboardSize
	}
	if m.PurchaseLoyaltyWeight == 0 {
		m.PurchaseLoyaltyWeight = m.ExtraFeePercent
	}
	if strings.TrimSpace(m.ProtocolFeeAddress) == "" {
		m.ProtocolFeeAddress = systemAddress(ProtocolAccountLabel)
	}
	if strings.TrimSpace(m.ReserveAddress) == "" {
		m.ReserveAddress = systemAddress(ReserveAccountLabel)
	}
}

// Params converts the market section into engine parameters.
func (m Market) Params() (creator.Params, error) {
	destination, err := ResolveIdentity("market.ProtocolFeeAddress", m.ProtocolFeeAddress)
	if err != nil {
		return creator.Params{}, err
	}
	reserve, err := ResolveIdentity("market.ReserveAddress", m.ReserveAddress)
	if err != nil {
		return creator.Params{}, err
	}
	params := creator.Params{
		Fees: fees.Policy{
			ProtocolPercent: m.ProtocolFeePercent,
			CreatorPercent:  m.CreatorFeePercent,
			ExtraPercent:    m.ExtraFeePercent,
			Destination:     destination,
		},
		Epochs:                epoch.Config{Length: m.EpochLength},
		LeaderboardSize:       m.LeaderboardSize,
		VoteLoyaltyWeight:     m.VoteLoyaltyWeight,
		PurchaseLoyaltyWeight: m.PurchaseLoyaltyWeight,
		Reserve:               reserve,
	}
	if err := params.Validate(); err != nil {
		return creator.Params{}, fmt.Errorf("config: market: %w", err)
	}
	return params, nil
}

// GenesisBalances parses the genesis allocations. Repeated identities are
// rejected.
func (c *Config) GenesisBalances() (map[[20]byte]*uint256.Int, error) {
	out := make(map[[20]byte]*uint256.Int, len(c.Genesis))
	for i, alloc := range c.Genesis {
		addr, err := ResolveIdentity(fmt.Sprintf("genesis[%d].Address", i), alloc.Address)
		if err != nil {
			return nil, err
		}
		if _, dup := out[addr]; dup {
			return nil, fmt.Errorf("config: genesis[%d]: duplicate allocation for %s", i, alloc.Address)
		}
		balance, err := uint256.FromDecimal(strings.TrimSpace(alloc.Balance))
		if err != nil {
			return nil, fmt.Errorf("config: genesis[%d].Balance: %w", i, err)
		}
		out[addr] = balance
	}
	return out, nil
}
