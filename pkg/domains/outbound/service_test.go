package outbound

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
	"github.com/inboxd/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type outboundFixture struct {
	db           *gorm.DB
	repo         inbox.Repository
	service      Service
	account      entities.ChannelAccount
	conversation entities.Conversation
}

// newOutboundFixture stands up a fake Evolution gateway answering the number
// check and the send, then wires a full send path against it. sendBody is
// what the gateway returns for the send call.
func newOutboundFixture(t *testing.T, sendBody string) *outboundFixture {
	t.Helper()
	require.NoError(t, vault.SetKey("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/chat/whatsappNumbers/"):
			fmt.Fprint(w, `[{"exists": true}]`)
		case strings.HasPrefix(r.URL.Path, "/message/"):
			fmt.Fprint(w, sendBody)
		default:
			w.WriteHeader(404)
		}
	}))
	t.Cleanup(gateway.Close)

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

	apiKey, err := vault.Encrypt("gateway-key")
	require.NoError(t, err)
	account := entities.ChannelAccount{
		WorkspaceID:     workspace.ID,
		Type:            entities.ChannelWhatsAppEvolution,
		ExternalID:      "support-line",
		DisplayName:     "Support",
		EncryptedAPIKey: apiKey,
		Metadata: entities.ChannelMetadata{
			BaseURL:      gateway.URL,
			InstanceName: "support-line",
		},
	}
	require.NoError(t, db.Create(&account).Error)

	contact := entities.Contact{
		WorkspaceID: workspace.ID,
		PrimaryName: "Ada",
		Handles:     entities.ContactHandles{WaID: "5511999"},
	}
	require.NoError(t, db.Create(&contact).Error)

	conversation := entities.Conversation{
		WorkspaceID:      workspace.ID,
		ChannelAccountID: account.ID,
		ContactID:        contact.ID,
		Status:           entities.ConversationOpen,
		LastMessageAt:    time.Unix(1700000000, 0),
	}
	require.NoError(t, db.Create(&conversation).Error)

	repo := inbox.NewRepo(db)
	return &outboundFixture{
		db:           db,
		repo:         repo,
		service:      NewService(repo, broadcast.NewHub(), evolution.NewClient(), meta.NewClient()),
		account:      account,
		conversation: conversation,
	}
}

func TestSendMessagePersistsGatewayID(t *testing.T) {
	f := newOutboundFixture(t, `{"key": {"id": "WAMID.OUT"}}`)

	message, err := f.service.SendMessage(context.Background(), f.account.WorkspaceID, f.conversation.ID, dtos.DTOForMessageSend{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "WAMID.OUT", message.ExternalMessageID)
	assert.Equal(t, entities.DirectionOutbound, message.Direction)
	require.NotNil(t, message.SentAt)
}

func TestSendMessageSynthesizesMissingGatewayID(t *testing.T) {
	f := newOutboundFixture(t, `{"status": "PENDING"}`)

	first, err := f.service.SendMessage(context.Background(), f.account.WorkspaceID, f.conversation.ID, dtos.DTOForMessageSend{Text: "one"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ExternalMessageID, "local-"))

	second, err := f.service.SendMessage(context.Background(), f.account.WorkspaceID, f.conversation.ID, dtos.DTOForMessageSend{Text: "two"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(second.ExternalMessageID, "local-"))
	assert.NotEqual(t, first.ExternalMessageID, second.ExternalMessageID)
}
