package entities

import (
	"gorm.io/gorm"
)

// ContactHandles keeps the per-family external identities of a contact. A
// contact created from WhatsApp traffic can later accumulate an Instagram
// handle if the operator merges identities.
type ContactHandles struct {
	WaID   string `json:"wa_id,omitempty"`
	IgID   string `json:"ig_id,omitempty"`
	FbPSID string `json:"fb_psid,omitempty"`
}

// Get returns the handle stored for a channel family, if any.
func (h ContactHandles) Get(family string) string {
	switch family {
	case "whatsapp":
		return h.WaID
	case "instagram":
		return h.IgID
	case "facebook":
		return h.FbPSID
	}
	return ""
}

// Set stores a handle for a channel family and reports whether anything
// changed, so callers can skip needless writes.
func (h *ContactHandles) Set(family, externalID string) bool {
	switch family {
	case "whatsapp":
		if h.WaID == externalID {
			return false
		}
		h.WaID = externalID
	case "instagram":
		if h.IgID == externalID {
			return false
		}
		h.IgID = externalID
	case "facebook":
		if h.FbPSID == externalID {
			return false
		}
		h.FbPSID = externalID
	default:
		return false
	}
	return true
}

// Contact is an external identity known to a workspace.
type Contact struct {
	gorm.Model
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	PrimaryName string         `json:"primary_name" gorm:"type:varchar(255);not null"`
	Handles     ContactHandles `json:"handles" gorm:"serializer:json"`

	// Relations
	Workspace Workspace `json:"-" gorm:"foreignKey:WorkspaceID"`
}

// ContactIdentity is the secondary index over contact handles: one row per
// (workspace, channel family, external id), maintained in the same
// transaction as the contact row. It replaces scanning the JSON handles of
// every contact in the workspace with an indexed lookup.
type ContactIdentity struct {
	gorm.Model
	WorkspaceID   uint   `json:"workspace_id" gorm:"uniqueIndex:ux_contact_identity,priority:1;not null"`
	ChannelFamily string `json:"channel_family" gorm:"type:varchar(32);uniqueIndex:ux_contact_identity,priority:2;not null"`
	ExternalID    string `json:"external_id" gorm:"type:varchar(255);uniqueIndex:ux_contact_identity,priority:3;not null"`
	ContactID     uint   `json:"contact_id" gorm:"index;not null"`

	// Relations
	Contact Contact `json:"-" gorm:"foreignKey:ContactID"`
}
