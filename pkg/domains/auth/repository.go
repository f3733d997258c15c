package auth

import (
	"context"

	"github.com/inboxd/pkg/entities"
	"gorm.io/gorm"
)

type Repository interface {
	CreateUserWithWorkspace(ctx context.Context, workspaceName string, user entities.User) (entities.User, error)
	FindUserByEmail(ctx context.Context, email string) (entities.User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

// CreateUserWithWorkspace creates the workspace and its first user in one
// transaction, so a failed signup never leaves an empty workspace behind.
func (r *repository) CreateUserWithWorkspace(ctx context.Context, workspaceName string, user entities.User) (entities.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workspace := entities.Workspace{Name: workspaceName}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		user.WorkspaceID = workspace.ID
		return tx.Create(&user).Error
	})
	return user, err
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return user, err
}
