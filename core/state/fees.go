package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"justfriends/native/fees"
)

type storedFeeTotals struct {
	Wallet [20]byte
	Gross  *uint256.Int
	Fee    *uint256.Int
}

func ensureFeeTotalsDefaults(stored *storedFeeTotals) {
	if stored == nil {
		return
	}
	if stored.Gross == nil {
		stored.Gross = new(uint256.Int)
	}
	if stored.Fee == nil {
		stored.Fee = new(uint256.Int)
	}
}

func (stored *storedFeeTotals) toTotals() fees.Totals {
	ensureFeeTotalsDefaults(stored)
	return fees.Totals{
		Wallet: stored.Wallet,
		Gross:  new(uint256.Int).Set(stored.Gross),
		Fee:    new(uint256.Int).Set(stored.Fee),
	}
}

func newStoredFeeTotals(record *fees.Totals) *storedFeeTotals {
	stored := &storedFeeTotals{Wallet: record.Wallet}
	if record.Gross != nil {
		stored.Gross = new(uint256.Int).Set(record.Gross)
	}
	if record.Fee != nil {
		stored.Fee = new(uint256.Int).Set(record.Fee)
	}
	ensureFeeTotalsDefaults(stored)
	return stored
}

func feeTotalsKey(wallet [20]byte) []byte {
	return prefixed(feeTotalsPrefix, wallet[:])
}

// FeesGetTotals loads the fee totals routed to wallet.
func (m *Manager) FeesGetTotals(wallet [20]byte) (*fees.Totals, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("fees: state manager not initialised")
	}
	var stored storedFeeTotals
	ok, err := m.KVGet(feeTotalsKey(wallet), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("fees: load totals: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	record := stored.toTotals()
	return &record, true, nil
}

// FeesPutTotals persists the totals record.
func (m *Manager) FeesPutTotals(record *fees.Totals) error {
	if m == nil {
		return fmt.Errorf("fees: state manager not initialised")
	}
	if record == nil {
		return fmt.Errorf("fees: totals record required")
	}
	if err := m.KVPut(feeTotalsKey(record.Wallet), newStoredFeeTotals(record)); err != nil {
		return fmt.Errorf("fees: persist totals: %w", err)
	}
	return nil
}
