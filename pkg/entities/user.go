package entities

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	WorkspaceID uint   `json:"workspace_id" gorm:"index;not null"`
	Email       string `json:"email" gorm:"unique;not null"`
	Password    string `json:"password" gorm:"not null"`
	Name        string `json:"name" gorm:"type:varchar(255);not null"`

	// Relations
	Workspace Workspace `json:"workspace" gorm:"foreignKey:WorkspaceID"`
}
