package channel

import (
	"context"

	"github.com/inboxd/pkg/entities"
	"gorm.io/gorm"
)

type Repository interface {
	CreateChannelAccount(ctx context.Context, account *entities.ChannelAccount) error
	FindChannelAccount(ctx context.Context, workspaceID, accountID uint) (entities.ChannelAccount, error)
	ListChannelAccounts(ctx context.Context, workspaceID uint) ([]entities.ChannelAccount, error)
	DeleteChannelAccount(ctx context.Context, workspaceID, accountID uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) CreateChannelAccount(ctx context.Context, account *entities.ChannelAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindChannelAccount(ctx context.Context, workspaceID, accountID uint) (entities.ChannelAccount, error) {
	var account entities.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, accountID).
		First(&account).Error
	return account, err
}

func (r *repository) ListChannelAccounts(ctx context.Context, workspaceID uint) ([]entities.ChannelAccount, error) {
	var accounts []entities.ChannelAccount
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) DeleteChannelAccount(ctx context.Context, workspaceID, accountID uint) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, accountID).
		Delete(&entities.ChannelAccount{}).Error
}
