package inbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type inboxFixture struct {
	db      *gorm.DB
	repo    Repository
	service Service
	hub     *broadcast.Hub
	account entities.ChannelAccount
}

func newInboxFixture(t *testing.T) *inboxFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.Workspace{},
		&entities.ChannelAccount{},
		&entities.Contact{},
		&entities.ContactIdentity{},
		&entities.Conversation{},
		&entities.Message{},
	))

	workspace := entities.Workspace{Name: "acme"}
	require.NoError(t, db.Create(&workspace).Error)

	account := entities.ChannelAccount{
		WorkspaceID: workspace.ID,
		Type:        entities.ChannelWhatsAppEvolution,
		ExternalID:  "support-line",
		DisplayName: "Support",
	}
	require.NoError(t, db.Create(&account).Error)

	hub := broadcast.NewHub()
	repo := NewRepo(db)
	return &inboxFixture{
		db:      db,
		repo:    repo,
		service: NewService(repo, hub),
		hub:     hub,
		account: account,
	}
}

func inboundEvent(externalMessageID, contactID, text string) CanonicalEvent {
	return CanonicalEvent{
		ChannelType:       entities.ChannelWhatsAppEvolution,
		ChannelExternalID: "support-line",
		ContactExternalID: contactID,
		ContactName:       "Ada",
		EventType:         EventMessage,
		Direction:         entities.DirectionInbound,
		Message: CanonicalMessage{
			Text:              text,
			MessageType:       entities.MessageText,
			Timestamp:         time.Unix(1700000000, 0),
			ExternalMessageID: externalMessageID,
		},
	}
}

func TestProcessCreatesContactConversationAndMessage(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	var frames []string
	defer f.hub.Subscribe(f.account.WorkspaceID, func(frame string) error {
		frames = append(frames, frame)
		return nil
	})()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "hello")))

	contact, err := f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)
	assert.Equal(t, "Ada", contact.PrimaryName)
	assert.Equal(t, "5511999", contact.Handles.WaID)

	conversation, err := f.repo.FindConversation(ctx, f.account.WorkspaceID, f.account.ID, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ConversationOpen, conversation.Status)
	assert.Equal(t, 1, conversation.UnreadCount)
	assert.True(t, conversation.LastMessageAt.Equal(time.Unix(1700000000, 0)))

	messages, _, err := f.repo.ListMessages(ctx, f.account.WorkspaceID, conversation.ID, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Body)
	assert.Equal(t, entities.DirectionInbound, messages[0].Direction)
	assert.NotNil(t, messages[0].ReceivedAt)
	assert.Nil(t, messages[0].SentAt)

	require.Len(t, frames, 1)
	assert.Contains(t, frames[0], `"type":"new_message"`)
}

func TestProcessFollowupBumpsAggregates(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "first")))
	second := inboundEvent("WAMID.2", "5511999", "second")
	second.Message.Timestamp = time.Unix(1700000100, 0)
	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, second))

	conversations, err := f.repo.ListConversations(ctx, f.account.WorkspaceID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, 2, conversations[0].UnreadCount)
	assert.True(t, conversations[0].LastMessageAt.Equal(time.Unix(1700000100, 0)))

	messages, _, err := f.repo.ListMessages(ctx, f.account.WorkspaceID, conversations[0].ID, 1)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestProcessReopensClosedConversation(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "hi")))

	conversations, err := f.repo.ListConversations(ctx, f.account.WorkspaceID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	require.NoError(t, f.repo.SetConversationStatus(ctx, f.account.WorkspaceID, conversations[0].ID, entities.ConversationClosed))

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.2", "5511999", "are you there?")))

	conversation, err := f.repo.FindConversationByID(ctx, f.account.WorkspaceID, conversations[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ConversationOpen, conversation.Status)
}

func TestProcessKnownHandleCausesNoSpuriousWrite(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "hi")))
	first, err := f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.2", "5511999", "again")))
	second, err := f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	var contactCount int64
	require.NoError(t, f.db.Model(&entities.Contact{}).Count(&contactCount).Error)
	assert.EqualValues(t, 1, contactCount)
}

func TestProcessUpdatesContactName(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	first := inboundEvent("WAMID.1", "5511999", "hi")
	first.ContactName = ""
	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, first))

	contact, err := f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)
	assert.Equal(t, "5511999", contact.PrimaryName)

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.2", "5511999", "hi again")))
	contact, err = f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)
	assert.Equal(t, "Ada", contact.PrimaryName)
}

func TestProcessOutboundEchoReconciles(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "hi")))
	conversations, err := f.repo.ListConversations(ctx, f.account.WorkspaceID)
	require.NoError(t, err)
	conversation := conversations[0]

	// simulate the operator send path having created the outbound row
	sentAt := time.Unix(1700000200, 0)
	sent := entities.Message{
		WorkspaceID:       f.account.WorkspaceID,
		ConversationID:    conversation.ID,
		Direction:         entities.DirectionOutbound,
		MessageType:       entities.MessageText,
		Body:              "our reply",
		ExternalMessageID: "WAMID.OUT",
		SentAt:            &sentAt,
	}
	require.NoError(t, f.repo.CreateMessage(ctx, &sent))
	require.NoError(t, f.repo.TouchConversation(ctx, conversation.ID, sentAt, false))

	before, err := f.repo.FindConversationByID(ctx, f.account.WorkspaceID, conversation.ID)
	require.NoError(t, err)

	echo := CanonicalEvent{
		ChannelType:       entities.ChannelWhatsAppEvolution,
		ChannelExternalID: "support-line",
		ContactExternalID: "5511999",
		EventType:         EventMessage,
		Direction:         entities.DirectionOutbound,
		Message: CanonicalMessage{
			Text:              "our reply",
			MessageType:       entities.MessageText,
			MediaURL:          "https://cdn/resolved",
			Timestamp:         time.Unix(1700000300, 0),
			ExternalMessageID: "WAMID.OUT",
			RawPayload:        map[string]any{"status": "SERVER_ACK"},
		},
	}
	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, echo))

	// the echo updated the existing row in place
	var messageCount int64
	require.NoError(t, f.db.Model(&entities.Message{}).
		Where("conversation_id = ?", conversation.ID).
		Count(&messageCount).Error)
	assert.EqualValues(t, 2, messageCount)

	merged, err := f.repo.FindOutboundMessage(ctx, f.account.WorkspaceID, conversation.ID, "WAMID.OUT")
	require.NoError(t, err)
	assert.Equal(t, "SERVER_ACK", merged.RawPayload["status"])
	assert.Equal(t, "https://cdn/resolved", merged.RawPayload["mediaUrl"])

	// aggregates were already bumped by the send path and stay untouched
	after, err := f.repo.FindConversationByID(ctx, f.account.WorkspaceID, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UnreadCount, after.UnreadCount)
	assert.True(t, before.LastMessageAt.Equal(after.LastMessageAt))
}

func TestProcessOutboundWithoutLocalRowInsertsIt(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	// message sent from the phone directly, no local send record
	event := inboundEvent("WAMID.1", "5511999", "sent from phone")
	event.Direction = entities.DirectionOutbound
	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, event))

	conversations, err := f.repo.ListConversations(ctx, f.account.WorkspaceID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, 0, conversations[0].UnreadCount)

	messages, _, err := f.repo.ListMessages(ctx, f.account.WorkspaceID, conversations[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.NotNil(t, messages[0].SentAt)
	assert.Nil(t, messages[0].ReceivedAt)
}

func TestProcessCommentEventsStoreCommentMessages(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	event := inboundEvent("c.1", "5511999", "nice post")
	event.EventType = EventComment
	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, event))

	conversations, err := f.repo.ListConversations(ctx, f.account.WorkspaceID)
	require.NoError(t, err)
	messages, _, err := f.repo.ListMessages(ctx, f.account.WorkspaceID, conversations[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, entities.MessageComment, messages[0].MessageType)
}

func TestProcessUnknownAccountFails(t *testing.T) {
	f := newInboxFixture(t)

	event := inboundEvent("WAMID.1", "5511999", "hi")
	event.ChannelExternalID = "nonexistent-instance"
	err := f.service.Process(context.Background(), f.account.WorkspaceID, event)
	assert.Error(t, err)
}

func TestProcessChatDeletionRemovesConversation(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "hi")))
	contact, err := f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)

	var frames []string
	defer f.hub.Subscribe(f.account.WorkspaceID, func(frame string) error {
		frames = append(frames, frame)
		return nil
	})()

	require.NoError(t, f.service.ProcessChatDeletion(ctx, f.account, []string{"5511999"}))

	_, err = f.repo.FindConversation(ctx, f.account.WorkspaceID, f.account.ID, contact.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// the contact itself survives deletion
	_, err = f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	assert.NoError(t, err)

	require.Len(t, frames, 1)
	assert.Contains(t, frames[0], `"type":"conversation_deleted"`)
}

func TestProcessChatDeletionAllowsNewThread(t *testing.T) {
	f := newInboxFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.1", "5511999", "hi")))
	require.NoError(t, f.service.ProcessChatDeletion(ctx, f.account, []string{"5511999"}))

	// The same contact writing again starts a fresh thread; the dead row
	// must not keep holding the channel/contact unique index slot.
	require.NoError(t, f.service.Process(ctx, f.account.WorkspaceID, inboundEvent("WAMID.2", "5511999", "hello again")))

	contact, err := f.repo.FindContactByIdentity(ctx, f.account.WorkspaceID, "whatsapp", "5511999")
	require.NoError(t, err)

	conversation, err := f.repo.FindConversation(ctx, f.account.WorkspaceID, f.account.ID, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, conversation.UnreadCount)

	messages, _, err := f.repo.ListMessages(ctx, f.account.WorkspaceID, conversation.ID, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello again", messages[0].Body)
}

func TestProcessChatDeletionUnknownContactIsNoop(t *testing.T) {
	f := newInboxFixture(t)
	assert.NoError(t, f.service.ProcessChatDeletion(context.Background(), f.account, []string{"does-not-exist"}))
}
