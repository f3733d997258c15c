package dtos

// DTO for sending a message from the inbox. Text-only sends set Text;
// media sends add the base64 payload plus its type information, with Text
// doubling as the caption.
type DTOForMessageSend struct {
	Text      string `json:"text"`
	MediaData string `json:"media_data"`
	MediaType string `json:"media_type"`
	Mimetype  string `json:"mimetype"`
	FileName  string `json:"file_name"`
}

// DTO for changing a conversation's status from the inbox.
type DTOForConversationStatus struct {
	Status string `json:"status" binding:"required,oneof=open pending closed"`
}
