package reputation

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	marketerrors "justfriends/core/errors"
)

// storage abstracts the subset of state manager functionality required by the
// reaction ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var reactionPrefix = []byte("reputation/reaction/")

func reactionKey(voter [20]byte, hash [32]byte) []byte {
	digest := ethcrypto.Keccak256(voter[:], hash[:])
	return []byte(fmt.Sprintf("%s%x", reactionPrefix, digest))
}

type storedReaction struct {
	Voter    [20]byte
	Hash     [32]byte
	Reaction uint8
}

// Ledger persists one reaction per (voter, content).
type Ledger struct {
	store storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) ready() error {
	if l == nil {
		return errors.New("reputation: ledger not initialised")
	}
	if l.store == nil {
		return errors.New("reputation: storage unavailable")
	}
	return nil
}

// Get returns the stored reaction, None when the voter never reacted.
func (l *Ledger) Get(voter [20]byte, hash [32]byte) (Reaction, error) {
	if err := l.ready(); err != nil {
		return None, err
	}
	var stored storedReaction
	ok, err := l.store.KVGet(reactionKey(voter, hash), &stored)
	if err != nil {
		return None, err
	}
	if !ok {
		return None, nil
	}
	return Reaction(stored.Reaction), nil
}

// Put records reaction, overwriting a different prior reaction. Repeating the
// stored reaction fails with ErrDuplicateVoting. The previous reaction is
// returned so the caller can move its per-content counts.
func (l *Ledger) Put(voter [20]byte, hash [32]byte, reaction Reaction) (Reaction, error) {
	if err := l.ready(); err != nil {
		return None, err
	}
	if !reaction.Valid() {
		return None, fmt.Errorf("%w: %s", marketerrors.ErrInvalidReaction, reaction)
	}
	prev, err := l.Get(voter, hash)
	if err != nil {
		return None, err
	}
	if prev == reaction {
		return prev, fmt.Errorf("%w: %s already recorded", marketerrors.ErrDuplicateVoting, reaction)
	}
	stored := storedReaction{Voter: voter, Hash: hash, Reaction: uint8(reaction)}
	if err := l.store.KVPut(reactionKey(voter, hash), &stored); err != nil {
		return None, err
	}
	return prev, nil
}
