package inbox

import (
	"context"
	"time"

	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	FindChannelAccount(ctx context.Context, workspaceID uint, channelType entities.ChannelType, externalID string) (entities.ChannelAccount, error)
	FindChannelAccountByExternalID(ctx context.Context, channelType entities.ChannelType, externalID string) (entities.ChannelAccount, error)

	FindContactByIdentity(ctx context.Context, workspaceID uint, family, externalID string) (entities.Contact, error)
	CreateContactWithIdentity(ctx context.Context, contact *entities.Contact, family, externalID string) error
	AddContactIdentity(ctx context.Context, workspaceID, contactID uint, family, externalID string) error
	SaveContact(ctx context.Context, contact *entities.Contact) error

	FindConversation(ctx context.Context, workspaceID, channelAccountID, contactID uint) (entities.Conversation, error)
	FindConversationByID(ctx context.Context, workspaceID, conversationID uint) (entities.Conversation, error)
	CreateConversation(ctx context.Context, conversation *entities.Conversation) error
	TouchConversation(ctx context.Context, conversationID uint, at time.Time, inbound bool) error
	SetConversationStatus(ctx context.Context, workspaceID, conversationID uint, status entities.ConversationStatus) error
	MarkConversationRead(ctx context.Context, workspaceID, conversationID uint) error
	DeleteConversation(ctx context.Context, conversationID uint) error
	ListConversations(ctx context.Context, workspaceID uint) ([]entities.Conversation, error)

	FindOutboundMessage(ctx context.Context, workspaceID, conversationID uint, externalMessageID string) (entities.Message, error)
	FindMessageByExternalID(ctx context.Context, workspaceID uint, externalMessageID string) (entities.Message, error)
	FindMessageByID(ctx context.Context, workspaceID, messageID uint) (entities.Message, error)
	CreateMessage(ctx context.Context, message *entities.Message) error
	SaveMessage(ctx context.Context, message *entities.Message) error
	ListMessages(ctx context.Context, workspaceID, conversationID uint, page int) ([]entities.Message, int, error)
	SearchMessages(ctx context.Context, workspaceID uint, query string, page int) ([]entities.Message, int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) FindChannelAccount(ctx context.Context, workspaceID uint, channelType entities.ChannelType, externalID string) (entities.ChannelAccount, error) {
	var account entities.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND type = ? AND external_id = ?", workspaceID, channelType, externalID).
		First(&account).Error
	return account, err
}

// FindChannelAccountByExternalID is the webhook-side lookup: inbound
// deliveries carry no workspace, only the provider-specific account id.
func (r *repository) FindChannelAccountByExternalID(ctx context.Context, channelType entities.ChannelType, externalID string) (entities.ChannelAccount, error) {
	var account entities.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("type = ? AND external_id = ?", channelType, externalID).
		First(&account).Error
	return account, err
}

func (r *repository) FindContactByIdentity(ctx context.Context, workspaceID uint, family, externalID string) (entities.Contact, error) {
	var identity entities.ContactIdentity
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND channel_family = ? AND external_id = ?", workspaceID, family, externalID).
		First(&identity).Error
	if err != nil {
		return entities.Contact{}, err
	}

	var contact entities.Contact
	err = r.db.WithContext(ctx).First(&contact, identity.ContactID).Error
	return contact, err
}

// CreateContactWithIdentity inserts the contact row and its identity-index
// row in one transaction. A duplicate-key error means another delivery won
// the create race; callers re-read by identity.
func (r *repository) CreateContactWithIdentity(ctx context.Context, contact *entities.Contact, family, externalID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(contact).Error; err != nil {
			return err
		}
		return tx.Create(&entities.ContactIdentity{
			WorkspaceID:   contact.WorkspaceID,
			ChannelFamily: family,
			ExternalID:    externalID,
			ContactID:     contact.ID,
		}).Error
	})
}

func (r *repository) AddContactIdentity(ctx context.Context, workspaceID, contactID uint, family, externalID string) error {
	return r.db.WithContext(ctx).Create(&entities.ContactIdentity{
		WorkspaceID:   workspaceID,
		ChannelFamily: family,
		ExternalID:    externalID,
		ContactID:     contactID,
	}).Error
}

func (r *repository) SaveContact(ctx context.Context, contact *entities.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *repository) FindConversation(ctx context.Context, workspaceID, channelAccountID, contactID uint) (entities.Conversation, error) {
	var conversation entities.Conversation
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND channel_account_id = ? AND contact_id = ?", workspaceID, channelAccountID, contactID).
		First(&conversation).Error
	return conversation, err
}

func (r *repository) FindConversationByID(ctx context.Context, workspaceID, conversationID uint) (entities.Conversation, error) {
	var conversation entities.Conversation
	err := r.db.WithContext(ctx).
		Preload("ChannelAccount").
		Preload("Contact").
		Where("workspace_id = ?", workspaceID).
		First(&conversation, conversationID).Error
	return conversation, err
}

func (r *repository) CreateConversation(ctx context.Context, conversation *entities.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

// TouchConversation bumps the aggregate fields on activity: last-message
// timestamp always, unread only for inbound, and closed threads reopen.
func (r *repository) TouchConversation(ctx context.Context, conversationID uint, at time.Time, inbound bool) error {
	updates := map[string]any{
		"last_message_at": at,
		"status": gorm.Expr(
			"CASE WHEN status = ? THEN ? ELSE status END",
			entities.ConversationClosed, entities.ConversationOpen,
		),
	}
	if inbound {
		updates["unread_count"] = gorm.Expr("unread_count + 1")
	}
	return r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error
}

func (r *repository) SetConversationStatus(ctx context.Context, workspaceID, conversationID uint, status entities.ConversationStatus) error {
	return r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND workspace_id = ?", conversationID, workspaceID).
		Update("status", status).Error
}

func (r *repository) MarkConversationRead(ctx context.Context, workspaceID, conversationID uint) error {
	return r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND workspace_id = ?", conversationID, workspaceID).
		Update("unread_count", 0).Error
}

// DeleteConversation removes the thread and its messages outright. The
// deletes are unscoped: a soft-deleted row would keep holding the
// channel/contact pair's unique index slot and block the thread from ever
// being recreated. Messages never disappear individually, only through this
// cascade.
func (r *repository) DeleteConversation(ctx context.Context, conversationID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("conversation_id = ?", conversationID).Delete(&entities.Message{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&entities.Conversation{}, conversationID).Error
	})
}

func (r *repository) ListConversations(ctx context.Context, workspaceID uint) ([]entities.Conversation, error) {
	var conversations []entities.Conversation
	err := r.db.WithContext(ctx).
		Preload("ChannelAccount").
		Preload("Contact").
		Where("workspace_id = ?", workspaceID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "last_message_at"}, Desc: true}).
		Find(&conversations).Error
	return conversations, err
}

func (r *repository) FindOutboundMessage(ctx context.Context, workspaceID, conversationID uint, externalMessageID string) (entities.Message, error) {
	var message entities.Message
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND conversation_id = ? AND external_message_id = ? AND direction = ?",
			workspaceID, conversationID, externalMessageID, entities.DirectionOutbound).
		First(&message).Error
	return message, err
}

func (r *repository) FindMessageByExternalID(ctx context.Context, workspaceID uint, externalMessageID string) (entities.Message, error) {
	var message entities.Message
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND external_message_id = ?", workspaceID, externalMessageID).
		First(&message).Error
	return message, err
}

func (r *repository) FindMessageByID(ctx context.Context, workspaceID, messageID uint) (entities.Message, error) {
	var message entities.Message
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, messageID).
		First(&message).Error
	return message, err
}

func (r *repository) CreateMessage(ctx context.Context, message *entities.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) SaveMessage(ctx context.Context, message *entities.Message) error {
	return r.db.WithContext(ctx).Save(message).Error
}

const messagePageSize = 50

func (r *repository) ListMessages(ctx context.Context, workspaceID, conversationID uint, page int) ([]entities.Message, int, error) {
	query := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("workspace_id = ? AND conversation_id = ?", workspaceID, conversationID)

	var messages []entities.Message
	totalPages, err := utils.Paginate(query, &messages, page, messagePageSize, "created_at ASC")
	return messages, totalPages, err
}

func (r *repository) SearchMessages(ctx context.Context, workspaceID uint, queryText string, page int) ([]entities.Message, int, error) {
	query := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("workspace_id = ? AND LOWER(body) LIKE LOWER(?)", workspaceID, "%"+queryText+"%")

	var messages []entities.Message
	totalPages, err := utils.Paginate(query, &messages, page, messagePageSize, "created_at DESC")
	return messages, totalPages, err
}
