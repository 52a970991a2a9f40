package api

import (
	"sync"

	"github.com/tanukai/factorytown/internal/engine"
)

// Hub fans simulation snapshots out to websocket subscribers and keeps
// the latest one for the JSON endpoints. It implements engine.Observer;
// OnSnapshot is called from the simulation goroutine, everything else
// from HTTP handlers.
type Hub struct {
	mu     sync.Mutex
	last   engine.Snapshot
	subs   map[int]chan engine.Snapshot
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan engine.Snapshot)}
}

// OnSnapshot stores the snapshot and offers it to every subscriber. Slow
// subscribers drop snapshots rather than stall the simulation.
func (h *Hub) OnSnapshot(s engine.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = s
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Last returns the most recent snapshot seen.
func (h *Hub) Last() engine.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Subscribe registers a snapshot channel and returns its id.
func (h *Hub) Subscribe() (int, <-chan engine.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan engine.Snapshot, 64)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}
