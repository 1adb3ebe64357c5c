package types

import "github.com/holiman/uint256"

// Account holds the abstract balance used to pay for access units and to
// receive sale proceeds and fee shares.
type Account struct {
	Balance *uint256.Int `json:"balance"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{}
	if a.Balance != nil {
		clone.Balance = new(uint256.Int).Set(a.Balance)
	}
	return clone
}
