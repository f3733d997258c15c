package inbox

import (
	"time"

	"github.com/inboxd/pkg/entities"
)

type EventType string

const (
	EventMessage EventType = "message"
	EventComment EventType = "comment"
	EventReply   EventType = "reply"
)

// CanonicalEvent is the provider-agnostic shape every webhook payload is
// normalized into before it reaches the processor. Provider-specific parsing
// stays inside the adapters; nothing downstream ever probes raw provider
// JSON.
type CanonicalEvent struct {
	ChannelType       entities.ChannelType
	ChannelExternalID string
	ContactExternalID string
	ContactName       string
	EventType         EventType
	Direction         entities.MessageDirection
	Message           CanonicalMessage
}

type CanonicalMessage struct {
	Text              string
	MessageType       entities.MessageType
	MediaURL          string
	Timestamp         time.Time
	ExternalMessageID string
	RawPayload        map[string]any
}
