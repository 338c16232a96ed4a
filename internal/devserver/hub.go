package devserver

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/sablewing/agent-console/internal/timeline"
)

// Hub fans pushed event frames out to stream subscribers, one topic per
// agent, and tracks each agent's processing flag.
type Hub struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{}
	processing  map[string]bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[string]map[chan []byte]struct{}),
		processing:  make(map[string]bool),
	}
}

// Subscribe registers a stream consumer for agentID. The returned cancel
// func unregisters the consumer and closes the channel, and is safe to call
// more than once.
func (h *Hub) Subscribe(agentID string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	subs, ok := h.subscribers[agentID]
	if !ok {
		subs = make(map[chan []byte]struct{})
		h.subscribers[agentID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[agentID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, agentID)
		}
	}
	return ch, cancel
}

// Publish delivers one frame to every subscriber of agentID. A subscriber
// whose buffer is full misses the frame.
func (h *Hub) Publish(agentID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[agentID] {
		select {
		case ch <- frame:
		default:
			h.logger.Debug("dropping frame for slow subscriber", slog.String("agent_id", agentID))
		}
	}
}

// SetProcessing records the agent's processing flag and broadcasts the
// change to subscribers.
func (h *Hub) SetProcessing(agentID string, active bool) {
	h.mu.Lock()
	h.processing[agentID] = active
	h.mu.Unlock()

	frame, _ := json.Marshal(struct {
		Kind   timeline.Kind `json:"kind"`
		Active bool          `json:"active"`
	}{timeline.KindProcessingStatus, active})
	h.Publish(agentID, frame)
}

// Processing reports the agent's current processing flag.
func (h *Hub) Processing(agentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processing[agentID]
}

// SubscriberCount reports the number of open streams for agentID.
func (h *Hub) SubscriberCount(agentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[agentID])
}
