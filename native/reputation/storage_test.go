package reputation

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
)

type memoryStore struct {
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func hash(b byte) [32]byte {
	var h [32]byte
	h[31] = b
	return h
}

func TestLedgerPutAndGet(t *testing.T) {
	ledger := NewLedger(newMemoryStore())
	voter := addr(1)
	content := hash(9)

	got, err := ledger.Get(voter, content)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != None {
		t.Fatalf("expected no reaction, got %s", got)
	}

	prev, err := ledger.Put(voter, content, Upvote)
	if err != nil {
		t.Fatalf("put upvote: %v", err)
	}
	if prev != None {
		t.Fatalf("expected previous none, got %s", prev)
	}
	got, _ = ledger.Get(voter, content)
	if got != Upvote {
		t.Fatalf("expected upvote, got %s", got)
	}
	other, _ := ledger.Get(voter, hash(10))
	if other != None {
		t.Fatalf("reaction leaked across content: %s", other)
	}
}

func TestLedgerRejectsRepeatAndInvalid(t *testing.T) {
	ledger := NewLedger(newMemoryStore())
	voter := addr(1)
	content := hash(9)

	if _, err := ledger.Put(voter, content, Reaction(3)); !errors.Is(err, marketerrors.ErrInvalidReaction) {
		t.Fatalf("expected invalid reaction, got %v", err)
	}
	if _, err := ledger.Put(voter, content, None); !errors.Is(err, marketerrors.ErrInvalidReaction) {
		t.Fatalf("expected invalid reaction for none, got %v", err)
	}
	if _, err := ledger.Put(voter, content, Downvote); err != nil {
		t.Fatalf("downvote: %v", err)
	}
	if _, err := ledger.Put(voter, content, Downvote); !errors.Is(err, marketerrors.ErrDuplicateVoting) {
		t.Fatalf("expected duplicate voting, got %v", err)
	}
	if got, _ := ledger.Get(voter, content); got != Downvote {
		t.Fatalf("rejected vote changed the stored reaction: %s", got)
	}
}

func TestLedgerSwitchStoresOnlyReactions(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(store)
	content := hash(4)
	for _, v := range []byte{1, 2, 3} {
		if _, err := ledger.Put(addr(v), content, Upvote); err != nil {
			t.Fatalf("upvote %d: %v", v, err)
		}
	}
	prev, err := ledger.Put(addr(2), content, Downvote)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if prev != Upvote {
		t.Fatalf("expected previous upvote, got %s", prev)
	}
	if got, _ := ledger.Get(addr(2), content); got != Downvote {
		t.Fatalf("expected downvote after switch, got %s", got)
	}
	// Counts live on the content record; the ledger keeps one entry per voter.
	if len(store.data) != 3 {
		t.Fatalf("expected 3 stored reactions, got %d keys", len(store.data))
	}
	for key := range store.data {
		if !strings.HasPrefix(key, string(reactionPrefix)) {
			t.Fatalf("unexpected key %q", key)
		}
	}
}

func TestEngineEmitsVoted(t *testing.T) {
	engine := NewEngine(newMemoryStore())
	buf := &events.Buffer{}
	engine.SetEmitter(buf)

	if _, err := engine.Vote(addr(1), hash(1), addr(7), Upvote); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := engine.Vote(addr(1), hash(1), addr(7), Upvote); err == nil {
		t.Fatalf("expected duplicate rejection")
	}
	if _, err := engine.Vote(addr(1), hash(1), addr(7), Downvote); err != nil {
		t.Fatalf("switch: %v", err)
	}
	evts := buf.Events()
	if len(evts) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evts))
	}
	if evts[0].EventType() != events.TypeUpvoted || evts[1].EventType() != events.TypeDownvoted {
		t.Fatalf("unexpected event order %s, %s", evts[0].EventType(), evts[1].EventType())
	}
}

func TestParseReaction(t *testing.T) {
	cases := map[string]Reaction{"1": Upvote, "up": Upvote, "downvote": Downvote, "2": Downvote}
	for in, want := range cases {
		got, err := ParseReaction(in)
		if err != nil || got != want {
			t.Fatalf("ParseReaction(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseReaction("0"); !errors.Is(err, marketerrors.ErrInvalidReaction) {
		t.Fatalf("expected invalid reaction for 0, got %v", err)
	}
	if got, err := ParseReaction(" UP "); err != nil || got != Upvote {
		t.Fatalf("expected case-insensitive parse, got %s %v", got, err)
	}
}

func TestEngineRequiresStore(t *testing.T) {
	engine := NewEngine(nil)
	if _, err := engine.Vote(addr(1), hash(1), addr(2), Upvote); err == nil {
		t.Fatalf("expected error without storage")
	}
}
