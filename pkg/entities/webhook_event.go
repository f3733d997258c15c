package entities

import (
	"time"

	"gorm.io/gorm"
)

// WebhookEvent is the dedup ledger: one row per admitted webhook delivery.
// The unique DedupeKey is the sole admission control; a second insert with
// the same key fails with a duplicate-key error and the caller acknowledges
// without reprocessing. Rows reach a terminal state via ProcessedAt (set on
// success and on failure, with Error carrying the failure text) and are
// never deleted.
type WebhookEvent struct {
	gorm.Model
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	Provider    string         `json:"provider" gorm:"type:varchar(32);not null"`
	DedupeKey   string         `json:"dedupe_key" gorm:"type:varchar(255);uniqueIndex;not null"`
	RawPayload  map[string]any `json:"raw_payload" gorm:"serializer:json"`
	ProcessedAt *time.Time     `json:"processed_at"`
	Error       string         `json:"error" gorm:"type:text"`
}
