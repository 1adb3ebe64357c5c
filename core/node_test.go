package core

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	marketerrors "justfriends/core/errors"
	"justfriends/core/events"
	"justfriends/native/creator"
	"justfriends/native/reputation"
	"justfriends/storage"
)

func testAddr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func testHash(b byte) [32]byte {
	var h [32]byte
	h[31] = b
	return h
}

func tera(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000))
}

var (
	author = testAddr(0xC0)
	fan    = testAddr(0xB1)
	// Prices the first unit at 1e12.
	testBasePrice = uint256.NewInt(10_000_000_000_000_000)
)

func newTestNode(t *testing.T) (*Node, *storage.MemDB, *events.Buffer) {
	t.Helper()
	params := creator.DefaultParams()
	params.Fees.Destination = testAddr(0xF0)
	params.Reserve = testAddr(0xF1)
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := NewNode(db, params)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	sink := &events.Buffer{}
	node.SetEmitter(sink)
	applied, err := node.ApplyGenesis(context.Background(), map[[20]byte]*uint256.Int{
		fan: tera(10_000),
	})
	if err != nil || !applied {
		t.Fatalf("genesis: applied=%v err=%v", applied, err)
	}
	return node, db, sink
}

func snapshot(t *testing.T, db storage.Database) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	if err := db.Iterate(nil, func(key, value []byte) bool {
		out[string(key)] = append([]byte(nil), value...)
		return true
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return out
}

func sameSnapshot(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !bytes.Equal(v, b[k]) {
			return false
		}
	}
	return true
}

func TestNewNodeRejectsInvalidParams(t *testing.T) {
	if _, err := NewNode(nil, creator.DefaultParams()); err == nil {
		t.Fatalf("expected error without database")
	}
	if _, err := NewNode(storage.NewMemDB(), creator.DefaultParams()); err == nil {
		t.Fatalf("expected error without reserve account")
	}
}

func TestGenesisAppliesOnce(t *testing.T) {
	node, _, _ := newTestNode(t)
	ctx := context.Background()

	applied, err := node.ApplyGenesis(ctx, map[[20]byte]*uint256.Int{fan: tera(1)})
	if err != nil {
		t.Fatalf("second genesis: %v", err)
	}
	if applied {
		t.Fatalf("genesis must not apply twice")
	}
	balance, err := node.Balance(ctx, fan)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Eq(tera(10_000)) {
		t.Fatalf("unexpected balance %s", balance.Dec())
	}
}

func TestRequestsCommitAndEmit(t *testing.T) {
	node, _, sink := newTestNode(t)
	ctx := context.Background()
	h := testHash(1)

	content, err := node.Post(ctx, author, h, testBasePrice, true, 10)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	price, err := node.GetBuyPrice(ctx, h, 10)
	if err != nil {
		t.Fatalf("buy price: %v", err)
	}
	receipt, err := node.BuyContentAccess(ctx, fan, h, 10, price, 20)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !receipt.Gross.Eq(tera(385)) {
		t.Fatalf("unexpected gross %s", receipt.Gross.Dec())
	}
	units, err := node.BalanceOf(ctx, content.AccessUnitID, fan)
	if err != nil || units != 10 {
		t.Fatalf("units=%d err=%v", units, err)
	}
	if _, err := node.Vote(ctx, fan, h, reputation.Upvote, 30); err != nil {
		t.Fatalf("vote: %v", err)
	}
	hashes, err := node.ContentByCreator(ctx, author)
	if err != nil || len(hashes) != 1 || hashes[0] != h {
		t.Fatalf("content by creator: %v %v", hashes, err)
	}
	leaders, err := node.Leaders(ctx, author, node.EpochAt(30))
	if err != nil || len(leaders) != 1 || leaders[0] != fan {
		t.Fatalf("leaders: %v %v", leaders, err)
	}

	got := sink.Events()
	want := []string{events.TypeContentCreated, events.TypeAccessPurchased, events.TypeUpvoted}
	var types []string
	for _, evt := range got {
		switch evt.EventType() {
		case events.TypeContentCreated, events.TypeAccessPurchased, events.TypeUpvoted:
			types = append(types, evt.EventType())
		}
	}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, types[i], want[i])
		}
	}
}

func TestFailedRequestLeavesNoTrace(t *testing.T) {
	node, db, sink := newTestNode(t)
	ctx := context.Background()
	h := testHash(2)

	if _, err := node.Post(ctx, author, h, testBasePrice, true, 10); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := node.Vote(ctx, fan, h, reputation.Upvote, 10); err != nil {
		t.Fatalf("vote: %v", err)
	}
	sink.Reset()
	before := snapshot(t, db)

	// The repeated vote lands in a later epoch, so the rollover is written
	// before the duplicate is detected.
	_, err := node.Vote(ctx, fan, h, reputation.Upvote, 250_000)
	if !errors.Is(err, marketerrors.ErrDuplicateVoting) {
		t.Fatalf("expected duplicate voting, got %v", err)
	}
	if !sameSnapshot(before, snapshot(t, db)) {
		t.Fatalf("failed request modified committed state")
	}
	if n := len(sink.Events()); n != 0 {
		t.Fatalf("failed request emitted %d events", n)
	}
	current, open, err := node.CurrentEpoch(ctx, author)
	if err != nil || !open || current != 0 {
		t.Fatalf("cursor moved: epoch=%d open=%v err=%v", current, open, err)
	}

	_, err = node.BuyContentAccess(ctx, fan, h, 1, uint256.NewInt(1), 20)
	if !errors.Is(err, marketerrors.ErrInsufficientPayment) {
		t.Fatalf("expected insufficient payment, got %v", err)
	}
	if !sameSnapshot(before, snapshot(t, db)) {
		t.Fatalf("rejected buy modified committed state")
	}
}

func TestEpochClosureIsCommitted(t *testing.T) {
	node, _, sink := newTestNode(t)
	ctx := context.Background()
	h := testHash(3)

	if _, err := node.Post(ctx, author, h, testBasePrice, true, 10); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := node.Vote(ctx, fan, h, reputation.Downvote, 250_000); err != nil {
		t.Fatalf("vote: %v", err)
	}
	closed := false
	for _, evt := range sink.Events() {
		if evt.EventType() == events.TypeLoyaltyEpochClosed {
			closed = true
		}
	}
	if !closed {
		t.Fatalf("expected epoch closure event")
	}
	ledger, err := node.EpochLedger(ctx, author, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if !ledger.IsClosed {
		t.Fatalf("epoch 0 should be closed")
	}
	current, _, err := node.CurrentEpoch(ctx, author)
	if err != nil || current != 2 {
		t.Fatalf("expected epoch 2, got %d err=%v", current, err)
	}
}

func TestOutcomeLabels(t *testing.T) {
	cases := map[error]string{
		nil:                                 "ok",
		marketerrors.ErrNotFound:            "not_found",
		marketerrors.ErrInsufficientAccess:  "insufficient_access",
		errors.New("disk on fire"):          "internal",
		marketerrors.ErrInsufficientPayment: "insufficient_payment",
	}
	for err, want := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %s, want %s", err, got, want)
		}
	}
}
