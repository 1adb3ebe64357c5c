package reputation

import (
	"errors"

	"justfriends/core/events"
)

// Engine wires vote handling against the ledger abstraction.
type Engine struct {
	ledger  *Ledger
	emitter events.Emitter
}

// NewEngine constructs an engine backed by the provided storage backend.
func NewEngine(store storage) *Engine {
	e := &Engine{emitter: events.NoopEmitter{}}
	if store != nil {
		e.ledger = NewLedger(store)
	}
	return e
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Vote records voter's reaction on hash. A switch from the opposite reaction
// is accepted; repeating the stored one is not.
func (e *Engine) Vote(voter [20]byte, hash [32]byte, creator [20]byte, reaction Reaction) (Reaction, error) {
	if e == nil || e.ledger == nil {
		return None, errors.New("reputation: engine not initialised")
	}
	prev, err := e.ledger.Put(voter, hash, reaction)
	if err != nil {
		return prev, err
	}
	e.emitter.Emit(events.Voted{Hash: hash, Voter: voter, Creator: creator, Up: reaction == Upvote})
	return prev, nil
}

// Reaction returns the stored reaction for (voter, hash).
func (e *Engine) Reaction(voter [20]byte, hash [32]byte) (Reaction, error) {
	if e == nil || e.ledger == nil {
		return None, errors.New("reputation: engine not initialised")
	}
	return e.ledger.Get(voter, hash)
}
