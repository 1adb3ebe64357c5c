package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"justfriends/core/types"
)

type storedAccount struct {
	Balance *uint256.Int
}

func accountKey(addr [20]byte) []byte {
	return prefixed(accountPrefix, addr[:])
}

func ensureAccountDefaults(account *types.Account) {
	if account.Balance == nil {
		account.Balance = new(uint256.Int)
	}
}

// GetAccount returns the account stored under addr. Unknown addresses yield
// an empty account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, fmt.Errorf("state: load account: %w", err)
	}
	account := &types.Account{}
	if ok && stored.Balance != nil {
		account.Balance = new(uint256.Int).Set(stored.Balance)
	}
	ensureAccountDefaults(account)
	return account, nil
}

// PutAccount persists account under addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: account required")
	}
	stored := storedAccount{Balance: new(uint256.Int)}
	if account.Balance != nil {
		stored.Balance.Set(account.Balance)
	}
	return m.KVPut(accountKey(addr), &stored)
}

// Credit adds amount to addr's balance.
func (m *Manager) Credit(addr [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(account.Balance, amount)
	if overflow {
		return fmt.Errorf("state: balance overflow for %x", addr)
	}
	account.Balance = sum
	return m.PutAccount(addr, account)
}

// GenesisApplied reports whether genesis allocations were written.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.KVGet(genesisMarkerKey, nil)
}

// MarkGenesisApplied records that genesis allocations were written.
func (m *Manager) MarkGenesisApplied() error {
	return m.KVPut(genesisMarkerKey, true)
}
