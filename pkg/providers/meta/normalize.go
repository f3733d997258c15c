package meta

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/entities"
)

// NormalizeBatch flattens one webhook delivery into canonical events. Meta
// batches events across entries, and each entry mixes direct messages with
// feed changes; events the inbox has no use for (read receipts, postbacks,
// attachment-only messages with no text) are dropped silently so the
// delivery as a whole still acknowledges.
func NormalizeBatch(payload *WebhookPayload) []inbox.CanonicalEvent {
	var channelType entities.ChannelType
	switch payload.Object {
	case "page":
		channelType = entities.ChannelFacebookPage
	case "instagram":
		channelType = entities.ChannelInstagramBusiness
	default:
		return nil
	}

	var events []inbox.CanonicalEvent
	for _, entry := range payload.Entry {
		for _, msg := range entry.Messaging {
			if event := normalizeMessaging(channelType, entry.ID, &msg); event != nil {
				events = append(events, *event)
			}
		}
		for _, change := range entry.Changes {
			if event := normalizeChange(channelType, entry.ID, &change); event != nil {
				events = append(events, *event)
			}
		}
	}
	return events
}

func normalizeMessaging(channelType entities.ChannelType, pageID string, msg *Messaging) *inbox.CanonicalEvent {
	if msg.Read != nil || msg.Postback != nil || msg.Message == nil {
		return nil
	}
	// Attachment-only messages carry no text the inbox can render.
	if msg.Message.Text == "" {
		return nil
	}

	direction := entities.DirectionInbound
	contactID := msg.Sender.ID
	if msg.Message.IsEcho {
		direction = entities.DirectionOutbound
		contactID = msg.Recipient.ID
	}

	externalID := msg.Message.MID
	if externalID == "" {
		externalID = "local-" + uuid.NewString()
	}

	var mediaURL string
	if len(msg.Message.Attachments) > 0 {
		mediaURL = msg.Message.Attachments[0].Payload.URL
	}

	return &inbox.CanonicalEvent{
		ChannelType:       channelType,
		ChannelExternalID: pageID,
		ContactExternalID: contactID,
		EventType:         inbox.EventMessage,
		Direction:         direction,
		Message: inbox.CanonicalMessage{
			Text:              msg.Message.Text,
			MessageType:       entities.MessageText,
			MediaURL:          mediaURL,
			Timestamp:         time.UnixMilli(msg.Timestamp),
			ExternalMessageID: externalID,
			RawPayload:        toRaw(msg),
		},
	}
}

func normalizeChange(channelType entities.ChannelType, pageID string, change *Change) *inbox.CanonicalEvent {
	if change.Field != "comments" && change.Field != "feed" {
		return nil
	}
	if change.Value.From == nil {
		return nil
	}

	text := change.Value.Text
	if text == "" {
		text = change.Value.Message
	}
	if text == "" {
		return nil
	}

	// A parent_id means this comment answers another comment, which the
	// inbox threads as a reply.
	eventType := inbox.EventComment
	if change.Value.ParentID != "" {
		eventType = inbox.EventReply
	}

	name := change.Value.From.Name
	if name == "" {
		name = change.Value.From.Username
	}

	externalID := change.Value.CommentID
	if externalID == "" {
		externalID = change.Value.ID
	}
	if externalID == "" {
		externalID = "local-" + uuid.NewString()
	}

	ts := time.Now()
	if change.Value.CreatedTime > 0 {
		ts = time.Unix(change.Value.CreatedTime, 0)
	}

	return &inbox.CanonicalEvent{
		ChannelType:       channelType,
		ChannelExternalID: pageID,
		ContactExternalID: change.Value.From.ID,
		ContactName:       name,
		EventType:         eventType,
		Direction:         entities.DirectionInbound,
		Message: inbox.CanonicalMessage{
			Text:              text,
			MessageType:       entities.MessageComment,
			Timestamp:         ts,
			ExternalMessageID: externalID,
			RawPayload:        toRaw(change),
		},
	}
}

func toRaw(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{}
	}
	return raw
}
