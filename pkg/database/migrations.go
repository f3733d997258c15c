package database

import (
	"github.com/inboxd/pkg/entities"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.Workspace{},
		&entities.User{},
		&entities.ChannelAccount{},
		&entities.Contact{},
		&entities.ContactIdentity{},
		&entities.Conversation{},
		&entities.Message{},
		&entities.WebhookEvent{},
	)
}
