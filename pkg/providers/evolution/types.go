package evolution

import "encoding/json"

// WebhookPayload is the envelope every Evolution API webhook carries.
// Instance names the gateway instance that produced the event; Event is the
// gateway's event label, which varies in casing and separator across
// deployments (see Classify).
type WebhookPayload struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
	Sender   string          `json:"sender,omitempty"`
	APIKey   string          `json:"apikey,omitempty"`
}

// MessageData is the data block of a messages.upsert / send.message event.
type MessageData struct {
	Key         MessageKey      `json:"key"`
	PushName    string          `json:"pushName,omitempty"`
	Message     *MessageContent `json:"message,omitempty"`
	MessageType string          `json:"messageType,omitempty"`
	// MessageTimestamp arrives as either a number or a numeric string
	// depending on the gateway version.
	MessageTimestamp json.RawMessage `json:"messageTimestamp,omitempty"`
	MediaURL         string          `json:"mediaUrl,omitempty"`
}

type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// MessageContent carries one of several mutually exclusive content variants.
// Exactly which one is set depends on what the user sent.
type MessageContent struct {
	Conversation        string        `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedText `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage `json:"imageMessage,omitempty"`
	VideoMessage        *MediaMessage `json:"videoMessage,omitempty"`
	AudioMessage        *MediaMessage `json:"audioMessage,omitempty"`
	DocumentMessage     *DocumentFile `json:"documentMessage,omitempty"`
	MediaURL            string        `json:"mediaUrl,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type MediaMessage struct {
	Caption  string `json:"caption,omitempty"`
	URL      string `json:"url,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

type DocumentFile struct {
	FileName string `json:"fileName,omitempty"`
	Caption  string `json:"caption,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ChatDeletionEntry appears inside chats.delete payloads. Some gateway
// versions send bare JID strings instead; NormalizeChatDeletion handles both.
type ChatDeletionEntry struct {
	RemoteJID string `json:"remoteJid,omitempty"`
	ID        string `json:"id,omitempty"`
	JID       string `json:"jid,omitempty"`
}

// Kind is the coarse classification of an incoming Evolution event.
type Kind int

const (
	KindIgnored Kind = iota
	KindMessage
	KindChatDeletion
)
