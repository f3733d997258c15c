package inbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/entities"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service interface {
	// Process is the core state transition: executed once per admitted,
	// non-duplicate canonical event.
	Process(ctx context.Context, workspaceID uint, event CanonicalEvent) error

	// ProcessChatDeletion handles provider-originated chat deletions.
	// contactExternalIDs are already stripped to bare ids by the adapter.
	ProcessChatDeletion(ctx context.Context, account entities.ChannelAccount, contactExternalIDs []string) error

	ListConversations(ctx context.Context, workspaceID uint) ([]entities.Conversation, error)
	GetConversation(ctx context.Context, workspaceID, conversationID uint) (entities.Conversation, error)
	UpdateConversationStatus(ctx context.Context, workspaceID, conversationID uint, status entities.ConversationStatus) error
	MarkConversationRead(ctx context.Context, workspaceID, conversationID uint) error
	DeleteConversation(ctx context.Context, workspaceID, conversationID uint) error
	ListMessages(ctx context.Context, workspaceID, conversationID uint, page int) ([]entities.Message, int, error)
	SearchMessages(ctx context.Context, workspaceID uint, query string, page int) ([]entities.Message, int, error)
}

type service struct {
	repository Repository
	hub        *broadcast.Hub
}

func NewService(r Repository, hub *broadcast.Hub) Service {
	return &service{
		repository: r,
		hub:        hub,
	}
}

func (s *service) Process(ctx context.Context, workspaceID uint, event CanonicalEvent) error {
	account, err := s.repository.FindChannelAccount(ctx, workspaceID, event.ChannelType, event.ChannelExternalID)
	if err != nil {
		return fmt.Errorf("channel account not found: %s:%s", event.ChannelType, event.ChannelExternalID)
	}

	contact, err := s.findOrCreateContact(ctx, workspaceID, event)
	if err != nil {
		return err
	}

	conversation, created, err := s.findOrCreateConversation(ctx, workspaceID, account.ID, contact.ID, event)
	if err != nil {
		return err
	}

	// Comment and reply events are always stored as comment messages,
	// regardless of any media-type inference upstream.
	messageType := event.Message.MessageType
	if event.EventType == EventComment || event.EventType == EventReply {
		messageType = entities.MessageComment
	}
	if messageType == "" {
		messageType = entities.MessageText
	}

	// Outbound echo reconciliation: the operator's send path creates the
	// outbound row synchronously, so the provider's confirmation webhook
	// updates that row in place instead of duplicating it. Aggregates were
	// already bumped by the send path and stay untouched here.
	if event.Direction == entities.DirectionOutbound {
		existing, err := s.repository.FindOutboundMessage(ctx, workspaceID, conversation.ID, event.Message.ExternalMessageID)
		if err == nil {
			s.mergeEcho(&existing, event, messageType)
			if err := s.repository.SaveMessage(ctx, &existing); err != nil {
				return err
			}
			s.hub.Publish(workspaceID, "message", broadcast.Update{
				Type:             broadcast.UpdateMessageUpdated,
				ConversationID:   conversation.ID,
				ChannelAccountID: account.ID,
				Message:          existing,
			})
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if !created {
		inbound := event.Direction != entities.DirectionOutbound
		if err := s.repository.TouchConversation(ctx, conversation.ID, event.Message.Timestamp, inbound); err != nil {
			return err
		}
	}

	message := entities.Message{
		WorkspaceID:       workspaceID,
		ConversationID:    conversation.ID,
		Direction:         event.Direction,
		MessageType:       messageType,
		Body:              event.Message.Text,
		ExternalMessageID: event.Message.ExternalMessageID,
		RawPayload:        rawPayloadWithMedia(event),
	}
	ts := event.Message.Timestamp
	if event.Direction == entities.DirectionOutbound {
		message.SentAt = &ts
	} else {
		message.ReceivedAt = &ts
	}

	if err := s.repository.CreateMessage(ctx, &message); err != nil {
		return err
	}

	s.hub.Publish(workspaceID, "message", broadcast.Update{
		Type:             broadcast.UpdateNewMessage,
		ConversationID:   conversation.ID,
		ChannelAccountID: account.ID,
	})
	return nil
}

func (s *service) findOrCreateContact(ctx context.Context, workspaceID uint, event CanonicalEvent) (entities.Contact, error) {
	family := event.ChannelType.Family()

	contact, err := s.repository.FindContactByIdentity(ctx, workspaceID, family, event.ContactExternalID)
	if err == nil {
		// Merge in new information only when it actually differs, so
		// reprocessing a known handle never causes a spurious write.
		changed := contact.Handles.Set(family, event.ContactExternalID)
		if event.ContactName != "" && event.ContactName != contact.PrimaryName {
			contact.PrimaryName = event.ContactName
			changed = true
		}
		if changed {
			if err := s.repository.SaveContact(ctx, &contact); err != nil {
				return entities.Contact{}, err
			}
		}
		return contact, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Contact{}, err
	}

	name := event.ContactName
	if name == "" {
		name = event.ContactExternalID
	}
	contact = entities.Contact{
		WorkspaceID: workspaceID,
		PrimaryName: name,
	}
	contact.Handles.Set(family, event.ContactExternalID)

	err = s.repository.CreateContactWithIdentity(ctx, &contact, family, event.ContactExternalID)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a first-contact race; the winning row is the contact.
		return s.repository.FindContactByIdentity(ctx, workspaceID, family, event.ContactExternalID)
	}
	return contact, err
}

func (s *service) findOrCreateConversation(ctx context.Context, workspaceID, channelAccountID, contactID uint, event CanonicalEvent) (entities.Conversation, bool, error) {
	conversation, err := s.repository.FindConversation(ctx, workspaceID, channelAccountID, contactID)
	if err == nil {
		return conversation, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Conversation{}, false, err
	}

	unread := 0
	if event.Direction != entities.DirectionOutbound {
		unread = 1
	}
	conversation = entities.Conversation{
		WorkspaceID:      workspaceID,
		ChannelAccountID: channelAccountID,
		ContactID:        contactID,
		Status:           entities.ConversationOpen,
		UnreadCount:      unread,
		LastMessageAt:    event.Message.Timestamp,
	}

	err = s.repository.CreateConversation(ctx, &conversation)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		conversation, err = s.repository.FindConversation(ctx, workspaceID, channelAccountID, contactID)
		return conversation, false, err
	}
	return conversation, true, err
}

func (s *service) mergeEcho(message *entities.Message, event CanonicalEvent, messageType entities.MessageType) {
	message.MessageType = messageType
	if event.Message.Text != "" {
		message.Body = event.Message.Text
	}
	if message.RawPayload == nil {
		message.RawPayload = map[string]any{}
	}
	for k, v := range event.Message.RawPayload {
		message.RawPayload[k] = v
	}
	// The echo often carries the resolved media URL the send response lacked.
	if event.Message.MediaURL != "" {
		message.RawPayload["mediaUrl"] = event.Message.MediaURL
	}
}

func rawPayloadWithMedia(event CanonicalEvent) map[string]any {
	raw := event.Message.RawPayload
	if raw == nil {
		raw = map[string]any{}
	}
	if event.Message.MediaURL != "" {
		raw["mediaUrl"] = event.Message.MediaURL
	}
	return raw
}

func (s *service) ProcessChatDeletion(ctx context.Context, account entities.ChannelAccount, contactExternalIDs []string) error {
	family := account.Type.Family()

	for _, externalID := range contactExternalIDs {
		contact, err := s.repository.FindContactByIdentity(ctx, account.WorkspaceID, family, externalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logrus.Warnf("[INBOX] chat deletion: no contact for %s:%s, skipped", family, externalID)
				continue
			}
			return err
		}

		conversation, err := s.repository.FindConversation(ctx, account.WorkspaceID, account.ID, contact.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logrus.Warnf("[INBOX] chat deletion: no conversation for contact %d, skipped", contact.ID)
				continue
			}
			return err
		}

		if err := s.repository.DeleteConversation(ctx, conversation.ID); err != nil {
			return err
		}

		s.hub.Publish(account.WorkspaceID, "message", broadcast.Update{
			Type:             broadcast.UpdateConversationDeleted,
			ConversationID:   conversation.ID,
			ChannelAccountID: account.ID,
		})
	}
	return nil
}

func (s *service) ListConversations(ctx context.Context, workspaceID uint) ([]entities.Conversation, error) {
	return s.repository.ListConversations(ctx, workspaceID)
}

func (s *service) GetConversation(ctx context.Context, workspaceID, conversationID uint) (entities.Conversation, error) {
	return s.repository.FindConversationByID(ctx, workspaceID, conversationID)
}

func (s *service) UpdateConversationStatus(ctx context.Context, workspaceID, conversationID uint, status entities.ConversationStatus) error {
	switch status {
	case entities.ConversationOpen, entities.ConversationPending, entities.ConversationClosed:
	default:
		return fmt.Errorf("invalid conversation status: %s", status)
	}
	return s.repository.SetConversationStatus(ctx, workspaceID, conversationID, status)
}

func (s *service) MarkConversationRead(ctx context.Context, workspaceID, conversationID uint) error {
	return s.repository.MarkConversationRead(ctx, workspaceID, conversationID)
}

func (s *service) DeleteConversation(ctx context.Context, workspaceID, conversationID uint) error {
	conversation, err := s.repository.FindConversationByID(ctx, workspaceID, conversationID)
	if err != nil {
		return err
	}
	return s.repository.DeleteConversation(ctx, conversation.ID)
}

func (s *service) ListMessages(ctx context.Context, workspaceID, conversationID uint, page int) ([]entities.Message, int, error) {
	return s.repository.ListMessages(ctx, workspaceID, conversationID, page)
}

func (s *service) SearchMessages(ctx context.Context, workspaceID uint, query string, page int) ([]entities.Message, int, error) {
	return s.repository.SearchMessages(ctx, workspaceID, query, page)
}
