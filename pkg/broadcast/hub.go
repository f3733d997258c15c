package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Update names carried in the event payload's "type" field.
const (
	UpdateNewMessage          = "new_message"
	UpdateMessageUpdated      = "message_updated"
	UpdateConversationDeleted = "conversation_deleted"
)

// Update is the payload pushed to connected viewers of a workspace.
type Update struct {
	Type             string `json:"type"`
	ConversationID   uint   `json:"conversationId,omitempty"`
	ChannelAccountID uint   `json:"channelAccountId,omitempty"`
	Message          any    `json:"message,omitempty"`
}

// Subscriber receives fully-framed text event-stream chunks. A returned
// error drops nothing but the log line; delivery to other subscribers is
// unaffected.
type Subscriber func(frame string) error

type subscription struct {
	workspaceID uint
	fn          Subscriber
}

// Hub is the in-process live-update fan-out: workspace id -> connected
// subscribers. One Hub is created at process start and injected into the
// handlers that publish or subscribe. Delivery is fire-and-forget and
// non-durable: a viewer that is not connected at publish time never sees
// that event.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint][]*subscription
	relay   func(workspaceID uint, event string, update Update)
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint][]*subscription)}
}

// Subscribe registers a subscriber and returns its unsubscribe function.
// Unsubscribing is idempotent and leaves other subscribers untouched.
func (h *Hub) Subscribe(workspaceID uint, fn Subscriber) func() {
	sub := &subscription{workspaceID: workspaceID, fn: fn}

	h.mu.Lock()
	h.clients[workspaceID] = append(h.clients[workspaceID], sub)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.clients[workspaceID]
			for i, s := range subs {
				if s == sub {
					h.clients[workspaceID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.clients[workspaceID]) == 0 {
				delete(h.clients, workspaceID)
			}
		})
	}
}

// Publish delivers an update to every current subscriber of the workspace
// and, when a bridge is attached, forwards it to the other instances.
// Callers must publish after their storage transaction commits, never
// inside it.
func (h *Hub) Publish(workspaceID uint, event string, update Update) {
	h.deliver(workspaceID, event, update)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		relay(workspaceID, event, update)
	}
}

func (h *Hub) deliver(workspaceID uint, event string, update Update) {
	frame, err := Frame(event, update)
	if err != nil {
		logrus.Errorf("[SSE] marshal error: %v", err)
		return
	}

	h.mu.RLock()
	subs := make([]*subscription, len(h.clients[workspaceID]))
	copy(subs, h.clients[workspaceID])
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.fn(frame); err != nil {
			// Subscriber is gone or choking; it deregisters itself on
			// disconnect, nothing to do here.
			logrus.Debugf("[SSE] send error: %v", err)
		}
	}
}

func (h *Hub) setRelay(fn func(workspaceID uint, event string, update Update)) {
	h.mu.Lock()
	h.relay = fn
	h.mu.Unlock()
}

// SubscriberCount reports the active subscribers of a workspace.
func (h *Hub) SubscriberCount(workspaceID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}

// Frame serializes an update as one text event-stream event.
func Frame(event string, update Update) (string, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data), nil
}
