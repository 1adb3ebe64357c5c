package events

import (
	"sync"

	"justfriends/core/types"
)

type payloadEvent interface {
	Event() *types.Event
}

// Payload converts evt into its wire envelope. Events without attributes
// yield an envelope carrying only the type.
func Payload(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if p, ok := evt.(payloadEvent); ok {
		if out := p.Event(); out != nil {
			return out
		}
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

// Multi forwards each event to every emitter in order.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}

// Hub fans committed events out to live subscribers. Slow subscribers lose
// events instead of blocking the producer.
type Hub struct {
	mu      sync.Mutex
	subs    map[uint64]*subscription
	next    uint64
	buffer  int
	dropped uint64
}

type subscription struct {
	ch     chan *types.Event
	filter string
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[uint64]*subscription), buffer: buffer}
}

// Emit implements the Emitter interface.
func (h *Hub) Emit(evt Event) {
	payload := Payload(evt)
	if h == nil || payload == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.filter != "" && sub.filter != payload.Type {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			h.dropped++
		}
	}
}

// Subscribe registers a listener for events of type filter, or every event
// when filter is empty. The returned cancel func closes the channel.
func (h *Hub) Subscribe(filter string) (<-chan *types.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	sub := &subscription{ch: make(chan *types.Event, h.buffer), filter: filter}
	h.subs[id] = sub
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was
// full.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
