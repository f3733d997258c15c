package webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/inboxd/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.WebhookEvent{}))
	return db
}

func TestDedupeKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "evolution:WAMID.1:1700000000123", DedupeKey("evolution", "WAMID.1", at))
}

func TestAdmitRejectsDuplicates(t *testing.T) {
	db := newLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	key := DedupeKey("evolution", "WAMID.1", time.Unix(1700000000, 0))
	require.NoError(t, ledger.Admit(ctx, 1, "evolution", key, map[string]any{"event": "messages.upsert"}))

	err := ledger.Admit(ctx, 1, "evolution", key, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	var count int64
	require.NoError(t, db.Model(&entities.WebhookEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAdmitDistinguishesTimestamps(t *testing.T) {
	db := newLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	// same message id at a different instant is a distinct event
	first := DedupeKey("evolution", "WAMID.1", time.Unix(1700000000, 0))
	second := DedupeKey("evolution", "WAMID.1", time.Unix(1700000001, 0))
	require.NoError(t, ledger.Admit(ctx, 1, "evolution", first, nil))
	assert.NoError(t, ledger.Admit(ctx, 1, "evolution", second, nil))
}

func TestMarkProcessedStampsTerminalState(t *testing.T) {
	db := newLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	key := DedupeKey("meta", "m.1", time.Unix(1700000000, 0))
	require.NoError(t, ledger.Admit(ctx, 1, "meta", key, nil))
	require.NoError(t, ledger.MarkProcessed(ctx, key))

	var row entities.WebhookEvent
	require.NoError(t, db.Where("dedupe_key = ?", key).First(&row).Error)
	assert.NotNil(t, row.ProcessedAt)
	assert.Empty(t, row.Error)
}

func TestMarkFailedKeepsErrorText(t *testing.T) {
	db := newLedgerDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	key := DedupeKey("meta", "m.2", time.Unix(1700000000, 0))
	require.NoError(t, ledger.Admit(ctx, 1, "meta", key, nil))
	require.NoError(t, ledger.MarkFailed(ctx, key, "channel account not found"))

	var row entities.WebhookEvent
	require.NoError(t, db.Where("dedupe_key = ?", key).First(&row).Error)
	assert.NotNil(t, row.ProcessedAt)
	assert.Equal(t, "channel account not found", row.Error)
}
