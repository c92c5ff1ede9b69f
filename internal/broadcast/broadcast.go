// Package broadcast is the same-device notification channel: every open tab
// holds a subscription to one shared hub, so sibling tabs converge on local
// mutations without a server round trip.
package broadcast

import "sync"

type MessageType string

const (
	TimerCreated   MessageType = "TIMER_CREATED"
	TimerUpdated   MessageType = "TIMER_UPDATED"
	TimerDeleted   MessageType = "TIMER_DELETED"
	ActivityLogged MessageType = "ACTIVITY_LOGGED"
)

// Message is a typed notification tagged with the originating tab so a tab
// can ignore its own messages.
type Message struct {
	Type     MessageType `json:"type"`
	SourceID string      `json:"source_id"`
	TimerID  string      `json:"timer_id,omitempty"`
	UserID   string      `json:"user_id,omitempty"`
}

type subscriber struct {
	sourceID string
	fn       func(Message)
}

// Hub fans messages out to every subscriber except the message's source.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]subscriber
	nextID      int
}

func NewHub() *Hub {
	return &Hub{subscribers: map[int]subscriber{}}
}

// Subscribe registers a callback for messages originated by other sources.
// The returned func removes the subscription; after it returns the callback
// is never invoked again.
func (h *Hub) Subscribe(sourceID string, fn func(Message)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = subscriber{sourceID: sourceID, fn: fn}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
	}
}

// Publish delivers msg synchronously to all subscriptions whose source
// differs from msg.SourceID.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	subs := make([]subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if sub.sourceID == msg.SourceID {
			continue
		}
		sub.fn(msg)
	}
}
