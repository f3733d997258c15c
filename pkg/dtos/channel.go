package dtos

// DTO for connecting a channel account. Credential is the provider secret
// (Evolution api key or Meta page access token); it is encrypted before it
// is stored and never echoed back.
type DTOForChannelCreate struct {
	Type        string `json:"type" binding:"required,channeltype"`
	DisplayName string `json:"display_name" binding:"required"`
	Credential  string `json:"credential" binding:"required"`
	ExternalID  string `json:"external_id"`

	// Evolution fields
	BaseURL      string `json:"base_url"`
	InstanceName string `json:"instance_name"`

	// Meta fields
	PageID string `json:"page_id"`
}
