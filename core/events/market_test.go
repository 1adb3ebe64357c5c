package events

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestVotedEventType(t *testing.T) {
	up := Voted{Up: true}
	down := Voted{}
	if up.EventType() != TypeUpvoted {
		t.Fatalf("expected %s, got %s", TypeUpvoted, up.EventType())
	}
	if down.Event().Type != TypeDownvoted {
		t.Fatalf("expected %s, got %s", TypeDownvoted, down.Event().Type)
	}
}

func TestAccessPurchasedAttributes(t *testing.T) {
	var hash [32]byte
	hash[0] = 0xab
	var buyer [20]byte
	buyer[19] = 0x01
	evt := AccessPurchased{
		Hash:   hash,
		Buyer:  buyer,
		Amount: 10,
		Cost:   uint256.NewInt(505),
		Total:  uint256.NewInt(555),
	}.Event()
	if evt.Attributes["amount"] != "10" {
		t.Fatalf("unexpected amount %q", evt.Attributes["amount"])
	}
	if evt.Attributes["cost"] != "505" || evt.Attributes["total"] != "555" {
		t.Fatalf("unexpected cost/total %q/%q", evt.Attributes["cost"], evt.Attributes["total"])
	}
	if evt.Attributes["refund"] != "0" {
		t.Fatalf("nil refund should render as 0, got %q", evt.Attributes["refund"])
	}
	if evt.Attributes["buyer"] != "0x0000000000000000000000000000000000000001" {
		t.Fatalf("unexpected buyer %q", evt.Attributes["buyer"])
	}
}

func TestBufferFlush(t *testing.T) {
	var buf Buffer
	buf.Emit(ContentCreated{})
	buf.Emit(nil)
	buf.Emit(Voted{Up: true})
	if got := len(buf.Events()); got != 2 {
		t.Fatalf("expected 2 buffered events, got %d", got)
	}
	var sink Buffer
	buf.FlushTo(&sink)
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer should be empty after flush")
	}
	got := sink.Events()
	if len(got) != 2 || got[0].EventType() != TypeContentCreated || got[1].EventType() != TypeUpvoted {
		t.Fatalf("unexpected flushed events %+v", got)
	}
	buf.Emit(ContentCreated{})
	buf.Reset()
	if len(buf.Events()) != 0 {
		t.Fatalf("reset should drop events")
	}
}
