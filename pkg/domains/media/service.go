package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/providers/evolution"
)

var ErrNoMedia = errors.New("media: message carries no media")

// Content is either inline bytes fetched from the gateway or a redirect to
// the provider's own CDN, depending on the channel. Meta attachment urls are
// already public and time-limited; WhatsApp media must be pulled through the
// Evolution gateway with the account credential.
type Content struct {
	Data        []byte
	Mimetype    string
	RedirectURL string
}

type Service interface {
	Fetch(ctx context.Context, workspaceID, messageID uint) (*Content, error)
}

type service struct {
	repository inbox.Repository
	evolution  *evolution.Client
}

func NewService(r inbox.Repository, evo *evolution.Client) Service {
	return &service{
		repository: r,
		evolution:  evo,
	}
}

func (s *service) Fetch(ctx context.Context, workspaceID, messageID uint) (*Content, error) {
	message, err := s.repository.FindMessageByID(ctx, workspaceID, messageID)
	if err != nil {
		return nil, err
	}

	conversation, err := s.repository.FindConversationByID(ctx, workspaceID, message.ConversationID)
	if err != nil {
		return nil, err
	}

	if conversation.ChannelAccount.Type.Family() != "whatsapp" {
		if url := payloadMediaURL(message); url != "" {
			return &Content{RedirectURL: url}, nil
		}
		return nil, ErrNoMedia
	}

	fetched, err := s.evolution.FetchMedia(ctx, &conversation.ChannelAccount, message.ExternalMessageID)
	if err != nil {
		return nil, err
	}

	// Gateways sometimes prefix the data-url scheme.
	raw := fetched.Base64
	if idx := strings.Index(raw, ","); idx >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("media: decoding gateway response: %w", err)
	}

	mimetype := fetched.Mimetype
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}
	return &Content{Data: data, Mimetype: mimetype}, nil
}

func payloadMediaURL(message entities.Message) string {
	if message.RawPayload == nil {
		return ""
	}
	if url, ok := message.RawPayload["mediaUrl"].(string); ok {
		return url
	}
	return ""
}
