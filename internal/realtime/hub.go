package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Message is one broadcast delivery as seen by a subscriber.
type Message struct {
	Channel string `json:"channel,omitempty"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Subscription is one live client connection.
type Subscription struct {
	UserID string
	C      chan Message
}

// Hub is an in-process Gateway: channel-based fan-out with per-user
// connection counting. When a user's last subscription goes away the
// configured hook fires, which the composition root wires to the day-end
// fallback.
type Hub struct {
	logger *zap.Logger

	mu               sync.Mutex
	subs             map[*Subscription]struct{}
	counts           map[string]int
	onLastDisconnect func(userID string)
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[*Subscription]struct{}),
		counts: make(map[string]int),
	}
}

// OnLastDisconnect registers the hook invoked when a user's connection
// count drops to zero. Must be set before subscribers connect.
func (h *Hub) OnLastDisconnect(fn func(userID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onLastDisconnect = fn
}

func (h *Hub) Subscribe(userID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{UserID: userID, C: make(chan Message, buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.counts[userID]++
	h.mu.Unlock()

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	_, known := h.subs[sub]
	if known {
		delete(h.subs, sub)
		h.counts[sub.UserID]--
		if h.counts[sub.UserID] <= 0 {
			delete(h.counts, sub.UserID)
		}
	}
	_, stillConnected := h.counts[sub.UserID]
	hook := h.onLastDisconnect
	h.mu.Unlock()

	if !known {
		return
	}
	close(sub.C)

	if !stillConnected && hook != nil {
		hook(sub.UserID)
	}
}

func (h *Hub) Emit(channel, event string, payload any) error {
	msg := Message{Channel: channel, Event: event, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.deliver(sub, msg)
	}
	return nil
}

func (h *Hub) EmitToUser(userID, event string, payload any) error {
	msg := Message{Event: event, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.UserID == userID {
			h.deliver(sub, msg)
		}
	}
	return nil
}

// deliver is non-blocking: a subscriber that cannot keep up loses the
// message rather than stalling the emitter.
func (h *Hub) deliver(sub *Subscription, msg Message) {
	select {
	case sub.C <- msg:
	default:
		h.logger.Debug("dropping broadcast for slow subscriber",
			zap.String("userId", sub.UserID),
			zap.String("event", msg.Event),
		)
	}
}
