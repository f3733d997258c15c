package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inboxd/pkg/entities"
	"gorm.io/gorm"
)

// ErrDuplicate means the delivery was already admitted (or is in flight).
// Webhook senders retry on anything but a prompt 2xx, so callers must treat
// this as "acknowledge and stop", never as a failure.
var ErrDuplicate = errors.New("webhook: duplicate delivery")

// DedupeKey composes the ledger key for one logical provider event. The
// timestamp distinguishes genuinely new events that happen to reuse a
// message id from retried deliveries of the same event.
func DedupeKey(provider, externalMessageID string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", provider, externalMessageID, at.UnixMilli())
}

type Ledger interface {
	// Admit records the delivery. The unique key constraint is the sole
	// admission control: exactly one caller proceeds per key.
	Admit(ctx context.Context, workspaceID uint, provider, dedupeKey string, rawPayload map[string]any) error

	// MarkProcessed and MarkFailed put the row into a terminal state.
	// Exactly one of them runs after processing, regardless of outcome.
	MarkProcessed(ctx context.Context, dedupeKey string) error
	MarkFailed(ctx context.Context, dedupeKey, errorText string) error
}

type ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) Ledger {
	return &ledger{
		db: db,
	}
}

func (l *ledger) Admit(ctx context.Context, workspaceID uint, provider, dedupeKey string, rawPayload map[string]any) error {
	err := l.db.WithContext(ctx).Create(&entities.WebhookEvent{
		WorkspaceID: workspaceID,
		Provider:    provider,
		DedupeKey:   dedupeKey,
		RawPayload:  rawPayload,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (l *ledger) MarkProcessed(ctx context.Context, dedupeKey string) error {
	now := time.Now()
	return l.db.WithContext(ctx).
		Model(&entities.WebhookEvent{}).
		Where("dedupe_key = ?", dedupeKey).
		Update("processed_at", now).Error
}

func (l *ledger) MarkFailed(ctx context.Context, dedupeKey, errorText string) error {
	now := time.Now()
	return l.db.WithContext(ctx).
		Model(&entities.WebhookEvent{}).
		Where("dedupe_key = ?", dedupeKey).
		Updates(map[string]any{
			"processed_at": now,
			"error":        errorText,
		}).Error
}
