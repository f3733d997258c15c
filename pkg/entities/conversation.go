package entities

import (
	"time"

	"gorm.io/gorm"
)

type ConversationStatus string

const (
	ConversationOpen    ConversationStatus = "open"
	ConversationPending ConversationStatus = "pending"
	ConversationClosed  ConversationStatus = "closed"
)

// Conversation is the thread between one ChannelAccount and one Contact.
// The unique index over the pair backs the find-or-create path: a concurrent
// first-contact burst hits the constraint and retries the lookup instead of
// creating duplicate threads.
type Conversation struct {
	gorm.Model
	WorkspaceID      uint               `json:"workspace_id" gorm:"index;not null"`
	ChannelAccountID uint               `json:"channel_account_id" gorm:"uniqueIndex:ux_conversation_pair,priority:1;not null"`
	ContactID        uint               `json:"contact_id" gorm:"uniqueIndex:ux_conversation_pair,priority:2;not null"`
	Status           ConversationStatus `json:"status" gorm:"type:varchar(16);default:open;not null"`
	UnreadCount      int                `json:"unread_count" gorm:"default:0;not null"`
	LastMessageAt    time.Time          `json:"last_message_at"`

	// Relations
	Workspace      Workspace      `json:"-" gorm:"foreignKey:WorkspaceID"`
	ChannelAccount ChannelAccount `json:"channel_account" gorm:"foreignKey:ChannelAccountID"`
	Contact        Contact        `json:"contact" gorm:"foreignKey:ContactID"`
}
