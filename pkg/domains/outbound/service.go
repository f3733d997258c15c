package outbound

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
)

// Service sends operator replies through the conversation's provider. The
// provider call runs first and the message row is only written once the
// provider has accepted the send, so a failed send leaves no trace in the
// conversation.
type Service interface {
	SendMessage(ctx context.Context, workspaceID, conversationID uint, req dtos.DTOForMessageSend) (entities.Message, error)
}

type service struct {
	repository inbox.Repository
	hub        *broadcast.Hub
	evolution  *evolution.Client
	meta       *meta.Client
}

func NewService(r inbox.Repository, hub *broadcast.Hub, evo *evolution.Client, graph *meta.Client) Service {
	return &service{
		repository: r,
		hub:        hub,
		evolution:  evo,
		meta:       graph,
	}
}

func (s *service) SendMessage(ctx context.Context, workspaceID, conversationID uint, req dtos.DTOForMessageSend) (entities.Message, error) {
	conversation, err := s.repository.FindConversationByID(ctx, workspaceID, conversationID)
	if err != nil {
		return entities.Message{}, err
	}

	account := conversation.ChannelAccount
	recipient := conversation.Contact.Handles.Get(account.Type.Family())
	if recipient == "" {
		return entities.Message{}, fmt.Errorf(constant.CANT_FIND, "Contact handle")
	}

	externalID, messageType, err := s.dispatch(ctx, &account, recipient, req)
	if err != nil {
		return entities.Message{}, err
	}
	if externalID == "" {
		// Some gateway responses omit the key; a synthetic id keeps the
		// row reconcilable and sends distinguishable from each other.
		externalID = "local-" + uuid.NewString()
	}

	now := time.Now()
	message := entities.Message{
		WorkspaceID:       workspaceID,
		ConversationID:    conversation.ID,
		Direction:         entities.DirectionOutbound,
		MessageType:       messageType,
		Body:              req.Text,
		ExternalMessageID: externalID,
		SentAt:            &now,
	}
	if err := s.repository.CreateMessage(ctx, &message); err != nil {
		return entities.Message{}, err
	}

	if err := s.repository.TouchConversation(ctx, conversation.ID, now, false); err != nil {
		return entities.Message{}, err
	}

	s.hub.Publish(workspaceID, "message", broadcast.Update{
		Type:             broadcast.UpdateNewMessage,
		ConversationID:   conversation.ID,
		ChannelAccountID: account.ID,
		Message:          message,
	})

	return message, nil
}

func (s *service) dispatch(ctx context.Context, account *entities.ChannelAccount, recipient string, req dtos.DTOForMessageSend) (string, entities.MessageType, error) {
	switch account.Type.Family() {
	case "whatsapp":
		exists, err := s.evolution.ChatExists(ctx, account, recipient)
		if err != nil {
			return "", "", err
		}
		if !exists {
			return "", "", fmt.Errorf("recipient is not reachable on WhatsApp")
		}
		if req.MediaData != "" {
			id, err := s.evolution.SendMedia(ctx, account, recipient, req.MediaType, req.Mimetype, req.Text, req.MediaData, req.FileName)
			return id, mediaMessageType(req.MediaType), err
		}
		id, err := s.evolution.SendText(ctx, account, recipient, req.Text)
		return id, entities.MessageText, err
	case "facebook", "instagram":
		if req.MediaData != "" {
			return "", "", fmt.Errorf("media sends are not supported on this channel")
		}
		id, err := s.meta.SendText(ctx, account, recipient, req.Text)
		return id, entities.MessageText, err
	}
	return "", "", fmt.Errorf(constant.INVALID_CHANNEL)
}

func mediaMessageType(mediaType string) entities.MessageType {
	switch mediaType {
	case "image":
		return entities.MessageImage
	case "video":
		return entities.MessageVideo
	case "audio":
		return entities.MessageAudio
	}
	return entities.MessageText
}
