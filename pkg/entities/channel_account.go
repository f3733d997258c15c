package entities

import (
	"gorm.io/gorm"
)

type ChannelType string

const (
	ChannelWhatsAppEvolution ChannelType = "whatsapp_evolution"
	ChannelFacebookPage      ChannelType = "facebook_page"
	ChannelInstagramBusiness ChannelType = "instagram_business"
)

// Family returns the contact-handle family for the channel type. Contacts
// accumulate one handle per family, not per channel account.
func (t ChannelType) Family() string {
	switch t {
	case ChannelWhatsAppEvolution:
		return "whatsapp"
	case ChannelInstagramBusiness:
		return "instagram"
	case ChannelFacebookPage:
		return "facebook"
	}
	return string(t)
}

// ChannelMetadata is provider-specific connection data. The core only reads
// the fields it needs; everything else is opaque settings-screen payload.
type ChannelMetadata struct {
	BaseURL        string `json:"baseUrl,omitempty"`
	InstanceName   string `json:"instanceName,omitempty"`
	PageID         string `json:"pageId,omitempty"`
	WebhookVersion string `json:"webhookVersion,omitempty"`
}

// ChannelAccount is one connected external channel: a WhatsApp instance on an
// Evolution gateway, a Facebook Page or an Instagram Business account.
// ExternalID is the join key inbound webhooks use to locate the account
// (instance name for Evolution, page/account id for Meta).
type ChannelAccount struct {
	gorm.Model
	WorkspaceID     uint            `json:"workspace_id" gorm:"index;not null"`
	Type            ChannelType     `json:"type" gorm:"type:varchar(32);index:idx_channel_route;not null"`
	ExternalID      string          `json:"external_id" gorm:"type:varchar(255);index:idx_channel_route;not null"`
	DisplayName     string          `json:"display_name" gorm:"type:varchar(255);not null"`
	EncryptedAPIKey string          `json:"-" gorm:"type:text"`
	Metadata        ChannelMetadata `json:"metadata" gorm:"serializer:json"`

	// Relations
	Workspace Workspace `json:"-" gorm:"foreignKey:WorkspaceID"`
}
