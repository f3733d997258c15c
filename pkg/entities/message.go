package entities

import (
	"time"

	"gorm.io/gorm"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageVideo   MessageType = "video"
	MessageAudio   MessageType = "audio"
	MessageSystem  MessageType = "system"
	MessageComment MessageType = "comment"
)

// Message is one sent or received item within a conversation. SentAt and
// ReceivedAt are mutually exclusive by direction. ExternalMessageID is the
// provider-assigned id; for outbound messages it is the natural key used to
// reconcile the synchronously-created send record against the provider's
// asynchronous echo webhook.
type Message struct {
	gorm.Model
	WorkspaceID       uint             `json:"workspace_id" gorm:"index;not null"`
	ConversationID    uint             `json:"conversation_id" gorm:"index;not null"`
	Direction         MessageDirection `json:"direction" gorm:"type:varchar(16);not null"`
	MessageType       MessageType      `json:"message_type" gorm:"type:varchar(16);not null"`
	Body              string           `json:"body" gorm:"type:text"`
	ExternalMessageID string           `json:"external_message_id" gorm:"type:varchar(255);index"`
	SentAt            *time.Time       `json:"sent_at"`
	ReceivedAt        *time.Time       `json:"received_at"`
	RawPayload        map[string]any   `json:"raw_payload" gorm:"serializer:json"`

	// Relations
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID"`
}
