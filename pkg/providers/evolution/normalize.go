package evolution

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/entities"
)

var ErrNotAMessage = errors.New("evolution: payload carries no message data")

// Classify maps the gateway's event label onto a coarse kind. Evolution
// deployments disagree on casing and separators ("messages.upsert",
// "MESSAGES_UPSERT", "MessagesUpsert" all occur in the wild), so labels are
// folded before comparison. Unknown labels that mention both a chat and a
// deletion are still treated as chat deletions; everything else unknown is
// ignored and acknowledged.
func Classify(event string) Kind {
	folded := strings.ToLower(event)
	folded = strings.NewReplacer(".", "", "_", "", "-", "", " ", "").Replace(folded)

	switch folded {
	case "messagesupsert", "messagesupdate", "sendmessage":
		return KindMessage
	case "chatsdelete", "chatdelete", "chatsdeleted":
		return KindChatDeletion
	}
	if strings.Contains(folded, "chat") && strings.Contains(folded, "delete") {
		return KindChatDeletion
	}
	return KindIgnored
}

// StripJID reduces a WhatsApp JID to the bare phone identifier:
// "5511999@s.whatsapp.net" and "5511999@lid" both become "5511999", and
// multi-device suffixes like "5511999:42@s.whatsapp.net" lose the ":42"
// segment as well.
func StripJID(jid string) string {
	if at := strings.Index(jid, "@"); at >= 0 {
		jid = jid[:at]
	}
	if colon := strings.Index(jid, ":"); colon >= 0 {
		jid = jid[:colon]
	}
	return jid
}

// Normalize turns a message-kind payload into the canonical event the
// processor consumes. It never fails on missing optional fields, only when
// the payload carries no message data at all.
func Normalize(payload *WebhookPayload) (*inbox.CanonicalEvent, error) {
	if len(payload.Data) == 0 {
		return nil, ErrNotAMessage
	}

	var data MessageData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, err
	}
	if data.Key.RemoteJID == "" {
		return nil, ErrNotAMessage
	}

	var raw map[string]any
	if err := json.Unmarshal(payload.Data, &raw); err != nil {
		raw = map[string]any{}
	}

	text, messageType := extractContent(data.Message)
	media := mediaURL(&data)
	if text == "" && media == "" {
		// Status acks arrive on the same event with a null message block.
		return nil, ErrNotAMessage
	}

	direction := entities.DirectionInbound
	if data.Key.FromMe {
		direction = entities.DirectionOutbound
	}

	externalID := data.Key.ID
	if externalID == "" {
		externalID = "local-" + uuid.NewString()
	}

	return &inbox.CanonicalEvent{
		ChannelType:       entities.ChannelWhatsAppEvolution,
		ChannelExternalID: payload.Instance,
		ContactExternalID: StripJID(data.Key.RemoteJID),
		ContactName:       data.PushName,
		EventType:         inbox.EventMessage,
		Direction:         direction,
		Message: inbox.CanonicalMessage{
			Text:              text,
			MessageType:       messageType,
			MediaURL:          media,
			Timestamp:         timestamp(data.MessageTimestamp),
			ExternalMessageID: externalID,
			RawPayload:        raw,
		},
	}, nil
}

// NormalizeChatDeletion extracts the contact identifiers named by a
// chats.delete payload. The data block is either an array of JID strings or
// an array of objects keyed remoteJid/id/jid, depending on gateway version;
// a single bare object also occurs.
func NormalizeChatDeletion(payload *WebhookPayload) []string {
	if len(payload.Data) == 0 {
		return nil
	}

	var jids []string

	var asStrings []string
	if err := json.Unmarshal(payload.Data, &asStrings); err == nil {
		jids = asStrings
	} else {
		var asEntries []ChatDeletionEntry
		if err := json.Unmarshal(payload.Data, &asEntries); err != nil {
			var single ChatDeletionEntry
			if err := json.Unmarshal(payload.Data, &single); err != nil {
				return nil
			}
			asEntries = []ChatDeletionEntry{single}
		}
		for _, entry := range asEntries {
			jids = append(jids, firstNonEmpty(entry.RemoteJID, entry.ID, entry.JID))
		}
	}

	ids := make([]string, 0, len(jids))
	for _, jid := range jids {
		if stripped := StripJID(jid); stripped != "" {
			ids = append(ids, stripped)
		}
	}
	return ids
}

// extractContent resolves the text body and message type from the content
// variants, in fixed priority order. A document with no caption falls back
// to its file name so the conversation list still shows something readable.
func extractContent(content *MessageContent) (string, entities.MessageType) {
	if content == nil {
		return "", entities.MessageText
	}

	switch {
	case content.Conversation != "":
		return content.Conversation, entities.MessageText
	case content.ExtendedTextMessage != nil && content.ExtendedTextMessage.Text != "":
		return content.ExtendedTextMessage.Text, entities.MessageText
	case content.ImageMessage != nil:
		return content.ImageMessage.Caption, entities.MessageImage
	case content.VideoMessage != nil:
		return content.VideoMessage.Caption, entities.MessageVideo
	case content.AudioMessage != nil:
		return content.AudioMessage.Caption, entities.MessageAudio
	case content.DocumentMessage != nil:
		text := content.DocumentMessage.Caption
		if text == "" {
			text = content.DocumentMessage.FileName
		}
		return text, entities.MessageText
	}
	return "", entities.MessageText
}

// mediaURL prefers the message-level url over the data-level one, and falls
// back to whatever url the content variant itself carries.
func mediaURL(data *MessageData) string {
	if data.Message != nil && data.Message.MediaURL != "" {
		return data.Message.MediaURL
	}
	if data.MediaURL != "" {
		return data.MediaURL
	}
	if data.Message == nil {
		return ""
	}
	switch {
	case data.Message.ImageMessage != nil:
		return data.Message.ImageMessage.URL
	case data.Message.VideoMessage != nil:
		return data.Message.VideoMessage.URL
	case data.Message.AudioMessage != nil:
		return data.Message.AudioMessage.URL
	case data.Message.DocumentMessage != nil:
		return data.Message.DocumentMessage.URL
	}
	return ""
}

func timestamp(raw json.RawMessage) time.Time {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if secs, err := strconv.ParseInt(text, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Now()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
