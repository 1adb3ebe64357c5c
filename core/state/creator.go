package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"justfriends/native/creator"
)

type storedContent struct {
	Hash         [32]byte
	Creator      [20]byte
	AccessUnitID uint64
	BasePrice    *uint256.Int
	IsPaid       bool
	UnitsSold    uint64
	Revenue      *uint256.Int
	Upvotes      uint64
	Downvotes    uint64
	PostedAt     uint64
}

func newStoredContent(c *creator.Content) *storedContent {
	stored := &storedContent{
		Hash:         c.Hash,
		Creator:      c.Creator,
		AccessUnitID: c.AccessUnitID,
		BasePrice:    new(uint256.Int),
		IsPaid:       c.IsPaid,
		UnitsSold:    c.UnitsSold,
		Revenue:      new(uint256.Int),
		Upvotes:      c.Upvotes,
		Downvotes:    c.Downvotes,
		PostedAt:     c.PostedAt,
	}
	if c.BasePrice != nil {
		stored.BasePrice.Set(c.BasePrice)
	}
	if c.Revenue != nil {
		stored.Revenue.Set(c.Revenue)
	}
	return stored
}

func (s *storedContent) toContent() *creator.Content {
	content := &creator.Content{
		Hash:         s.Hash,
		Creator:      s.Creator,
		AccessUnitID: s.AccessUnitID,
		BasePrice:    new(uint256.Int),
		IsPaid:       s.IsPaid,
		UnitsSold:    s.UnitsSold,
		Revenue:      new(uint256.Int),
		Upvotes:      s.Upvotes,
		Downvotes:    s.Downvotes,
		PostedAt:     s.PostedAt,
	}
	if s.BasePrice != nil {
		content.BasePrice.Set(s.BasePrice)
	}
	if s.Revenue != nil {
		content.Revenue.Set(s.Revenue)
	}
	return content
}

func contentKey(hash [32]byte) []byte {
	return prefixed(contentPrefix, hash[:])
}

func creatorIndexKey(addr [20]byte) []byte {
	return prefixed(creatorIndexPrefix, addr[:])
}

func accessBalanceKey(unitID uint64, holder [20]byte) []byte {
	return []byte(fmt.Sprintf(accessBalanceFormat, unitID, holder))
}

// CreatorContentGet loads the content registered under hash.
func (m *Manager) CreatorContentGet(hash [32]byte) (*creator.Content, bool, error) {
	var stored storedContent
	ok, err := m.KVGet(contentKey(hash), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: load content: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return stored.toContent(), true, nil
}

// CreatorContentPut persists content and indexes it under its creator.
func (m *Manager) CreatorContentPut(content *creator.Content) error {
	if content == nil {
		return fmt.Errorf("state: content required")
	}
	if err := m.KVPut(contentKey(content.Hash), newStoredContent(content)); err != nil {
		return fmt.Errorf("state: persist content: %w", err)
	}
	if err := m.KVAppend(creatorIndexKey(content.Creator), content.Hash[:]); err != nil {
		return fmt.Errorf("state: index content: %w", err)
	}
	return nil
}

// CreatorContentList returns the hashes posted by addr in posting order.
func (m *Manager) CreatorContentList(addr [20]byte) ([][32]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(creatorIndexKey(addr), &raw); err != nil {
		return nil, fmt.Errorf("state: load content index: %w", err)
	}
	out := make([][32]byte, 0, len(raw))
	for _, entry := range raw {
		var h [32]byte
		copy(h[:], entry)
		out = append(out, h)
	}
	return out, nil
}

// CreatorNextAccessUnitID allocates the next access unit id. Ids start at 1
// and are never reused.
func (m *Manager) CreatorNextAccessUnitID() (uint64, error) {
	var last uint64
	if _, err := m.KVGet(accessUnitSequenceKey, &last); err != nil {
		return 0, fmt.Errorf("state: load access unit sequence: %w", err)
	}
	next := last + 1
	if err := m.KVPut(accessUnitSequenceKey, next); err != nil {
		return 0, fmt.Errorf("state: persist access unit sequence: %w", err)
	}
	return next, nil
}

// CreatorAccessBalanceGet returns holder's units of unitID.
func (m *Manager) CreatorAccessBalanceGet(unitID uint64, holder [20]byte) (uint64, error) {
	var balance uint64
	if _, err := m.KVGet(accessBalanceKey(unitID, holder), &balance); err != nil {
		return 0, fmt.Errorf("state: load access balance: %w", err)
	}
	return balance, nil
}

// CreatorAccessBalancePut stores holder's units of unitID. A zero balance
// removes the record.
func (m *Manager) CreatorAccessBalancePut(unitID uint64, holder [20]byte, balance uint64) error {
	key := accessBalanceKey(unitID, holder)
	if balance == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, balance)
}
