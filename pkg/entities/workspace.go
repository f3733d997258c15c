package entities

import (
	"gorm.io/gorm"
)

// Workspace is the tenant boundary. Every inbox entity is scoped by
// WorkspaceID. A workspace is created once at signup and never mutated by
// the ingestion pipeline.
type Workspace struct {
	gorm.Model
	Name string `json:"name" gorm:"type:varchar(255);not null"`
}
