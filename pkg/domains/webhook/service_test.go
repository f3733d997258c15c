package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type webhookFixture struct {
	db      *gorm.DB
	service Service
	wa      entities.ChannelAccount
	fb      entities.ChannelAccount
}

func newWebhookFixture(t *testing.T) *webhookFixture {
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
		&entities.WebhookEvent{},
	))

	workspace := entities.Workspace{Name: "acme"}
	require.NoError(t, db.Create(&workspace).Error)

	wa := entities.ChannelAccount{
		WorkspaceID: workspace.ID,
		Type:        entities.ChannelWhatsAppEvolution,
		ExternalID:  "support-line",
		DisplayName: "Support",
	}
	require.NoError(t, db.Create(&wa).Error)

	fb := entities.ChannelAccount{
		WorkspaceID: workspace.ID,
		Type:        entities.ChannelFacebookPage,
		ExternalID:  "page-1",
		DisplayName: "Page",
	}
	require.NoError(t, db.Create(&fb).Error)

	repo := inbox.NewRepo(db)
	processor := inbox.NewService(repo, broadcast.NewHub())
	return &webhookFixture{
		db:      db,
		service: NewService(NewLedger(db), repo, processor),
		wa:      wa,
		fb:      fb,
	}
}

func evolutionDelivery(event, data string) *evolution.WebhookPayload {
	return &evolution.WebhookPayload{
		Event:    event,
		Instance: "support-line",
		Data:     json.RawMessage(data),
	}
}

func TestHandleEvolutionProcessesThenDeduplicates(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	payload := evolutionDelivery("messages.upsert", `{
		"key": {"remoteJid": "5511999@s.whatsapp.net", "id": "WAMID.1"},
		"pushName": "Ada",
		"message": {"conversation": "hello"},
		"messageTimestamp": 1700000000
	}`)

	assert.Equal(t, AckProcessed, f.service.HandleEvolution(ctx, payload))
	assert.Equal(t, AckDuplicate, f.service.HandleEvolution(ctx, payload))

	var messageCount int64
	require.NoError(t, f.db.Model(&entities.Message{}).Count(&messageCount).Error)
	assert.EqualValues(t, 1, messageCount)

	var ledgerRow entities.WebhookEvent
	require.NoError(t, f.db.First(&ledgerRow).Error)
	assert.NotNil(t, ledgerRow.ProcessedAt)
}

func TestHandleEvolutionSkipsIgnoredEvents(t *testing.T) {
	f := newWebhookFixture(t)
	payload := evolutionDelivery("connection.update", `{"state": "open"}`)
	assert.Equal(t, AckSkipped, f.service.HandleEvolution(context.Background(), payload))
}

func TestHandleEvolutionSkipsStatusAck(t *testing.T) {
	// messages.update deliveries for read receipts carry the key but no
	// message body; they must not turn into message rows.
	f := newWebhookFixture(t)
	payload := evolutionDelivery("messages.update", `{
		"key": {"remoteJid": "5511999@s.whatsapp.net", "id": "WAMID.1"}
	}`)
	assert.Equal(t, AckSkipped, f.service.HandleEvolution(context.Background(), payload))

	var messageCount int64
	require.NoError(t, f.db.Model(&entities.Message{}).Count(&messageCount).Error)
	assert.EqualValues(t, 0, messageCount)
}

func TestHandleEvolutionSkipsUnknownInstance(t *testing.T) {
	f := newWebhookFixture(t)
	payload := evolutionDelivery("messages.upsert", `{
		"key": {"remoteJid": "5511999@s.whatsapp.net", "id": "WAMID.1"},
		"message": {"conversation": "hello"}
	}`)
	payload.Instance = "someone-elses-instance"
	assert.Equal(t, AckSkipped, f.service.HandleEvolution(context.Background(), payload))
}

func TestHandleEvolutionChatDeletion(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	upsert := evolutionDelivery("messages.upsert", `{
		"key": {"remoteJid": "5511999@s.whatsapp.net", "id": "WAMID.1"},
		"message": {"conversation": "hello"},
		"messageTimestamp": 1700000000
	}`)
	require.Equal(t, AckProcessed, f.service.HandleEvolution(ctx, upsert))

	deletion := evolutionDelivery("chats.delete", `["5511999@s.whatsapp.net"]`)
	assert.Equal(t, AckProcessed, f.service.HandleEvolution(ctx, deletion))

	var conversationCount int64
	require.NoError(t, f.db.Model(&entities.Conversation{}).Count(&conversationCount).Error)
	assert.EqualValues(t, 0, conversationCount)
}

func TestHandleMetaRejectsUnknownObject(t *testing.T) {
	f := newWebhookFixture(t)
	_, err := f.service.HandleMeta(context.Background(), &meta.WebhookPayload{Object: "whatsapp_business_account"})
	assert.ErrorIs(t, err, ErrUnknownObject)
}

func TestHandleMetaProcessesPageMessages(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	var payload meta.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"messaging": [{
				"sender": {"id": "psid-9"},
				"recipient": {"id": "page-1"},
				"timestamp": 1700000000000,
				"message": {"mid": "m.1", "text": "hi"}
			}]
		}]
	}`), &payload))

	ack, err := f.service.HandleMeta(ctx, &payload)
	require.NoError(t, err)
	assert.Equal(t, AckProcessed, ack)

	// redelivery admits nothing new
	_, err = f.service.HandleMeta(ctx, &payload)
	require.NoError(t, err)

	var messageCount int64
	require.NoError(t, f.db.Model(&entities.Message{}).Count(&messageCount).Error)
	assert.EqualValues(t, 1, messageCount)
}

func TestHandleMetaSkipsEventlessDeliveries(t *testing.T) {
	f := newWebhookFixture(t)

	var payload meta.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"messaging": [{"sender": {"id": "psid-9"}, "recipient": {"id": "page-1"}, "read": {"watermark": 1}}]
		}]
	}`), &payload))

	ack, err := f.service.HandleMeta(context.Background(), &payload)
	require.NoError(t, err)
	assert.Equal(t, AckSkipped, ack)
}
