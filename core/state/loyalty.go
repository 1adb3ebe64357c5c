package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"justfriends/native/loyalty"
)

func loyaltyRecordKey(fan, creator [20]byte, epoch uint64) []byte {
	return []byte(fmt.Sprintf(loyaltyRecordFormat, fan, creator, epoch))
}

func loyaltyLedgerKey(creator [20]byte, epoch uint64) []byte {
	return []byte(fmt.Sprintf(loyaltyLedgerFormat, creator, epoch))
}

func loyaltyCursorKey(creator [20]byte) []byte {
	return prefixed(loyaltyCursorPrefix, creator[:])
}

// LoyaltyRecordGet loads the record for (fan, creator, epoch).
func (m *Manager) LoyaltyRecordGet(fan, creator [20]byte, epoch uint64) (*loyalty.Record, bool, error) {
	var record loyalty.Record
	ok, err := m.KVGet(loyaltyRecordKey(fan, creator, epoch), &record)
	if err != nil {
		return nil, false, fmt.Errorf("state: load loyalty record: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &record, true, nil
}

// LoyaltyRecordPut persists record.
func (m *Manager) LoyaltyRecordPut(record *loyalty.Record) error {
	if record == nil {
		return fmt.Errorf("state: loyalty record required")
	}
	return m.KVPut(loyaltyRecordKey(record.Fan, record.Creator, record.Epoch), record)
}

// LoyaltyLedgerGet loads the creator's epoch ledger.
func (m *Manager) LoyaltyLedgerGet(creator [20]byte, epoch uint64) (*loyalty.EpochLedger, bool, error) {
	var ledger loyalty.EpochLedger
	ok, err := m.KVGet(loyaltyLedgerKey(creator, epoch), &ledger)
	if err != nil {
		return nil, false, fmt.Errorf("state: load epoch ledger: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	if ledger.Revenue == nil {
		ledger.Revenue = new(uint256.Int)
	}
	if ledger.Leaders == nil {
		ledger.Leaders = []loyalty.Leader{}
	}
	return &ledger, true, nil
}

// LoyaltyLedgerPut persists ledger.
func (m *Manager) LoyaltyLedgerPut(ledger *loyalty.EpochLedger) error {
	if ledger == nil {
		return fmt.Errorf("state: epoch ledger required")
	}
	stored := ledger.Clone()
	return m.KVPut(loyaltyLedgerKey(stored.Creator, stored.Epoch), stored)
}

// LoyaltyCursorGet loads the creator's open epoch cursor.
func (m *Manager) LoyaltyCursorGet(creator [20]byte) (*loyalty.Cursor, bool, error) {
	var cursor loyalty.Cursor
	ok, err := m.KVGet(loyaltyCursorKey(creator), &cursor)
	if err != nil {
		return nil, false, fmt.Errorf("state: load loyalty cursor: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &cursor, true, nil
}

// LoyaltyCursorPut persists cursor.
func (m *Manager) LoyaltyCursorPut(cursor *loyalty.Cursor) error {
	if cursor == nil {
		return fmt.Errorf("state: loyalty cursor required")
	}
	return m.KVPut(loyaltyCursorKey(cursor.Creator), cursor)
}
