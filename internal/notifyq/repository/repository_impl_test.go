package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/notifyq/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.EmailQueueItem{}))
	return db
}

func seedEmail(t *testing.T, db *gorm.DB, id int64, status string) {
	t.Helper()

	item := domain.EmailQueueItem{
		ID:         snowflake.ID(id),
		PropertyID: snowflake.ID(1),
		AlertID:    snowflake.ID(100 + id),
		ToAddress:  "frontdesk@example.com",
		Subject:    "911 CALL",
		Body:       "emergency call detail",
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(&item).Error)
}

func TestFetchEmailsForWorkClaimsPendingOnly(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		seedEmail(t, db, i, domain.StatusPending)
	}
	seedEmail(t, db, 4, domain.StatusSent)
	seedEmail(t, db, 5, domain.StatusFailed)

	items, err := repo.FetchEmailsForWork(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		require.Equal(t, domain.StatusPending, item.Status)
	}

	limited, err := repo.FetchEmailsForWork(ctx, db, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestMarkEmailSentSettlesOnce(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	seedEmail(t, db, 1, domain.StatusPending)

	items, err := repo.FetchEmailsForWork(ctx, db, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, repo.MarkEmailSent(ctx, db, items[0].ID))

	var settled domain.EmailQueueItem
	require.NoError(t, db.First(&settled, "id = ?", items[0].ID).Error)
	require.Equal(t, domain.StatusSent, settled.Status)
	require.NotNil(t, settled.SentAt)

	// A second settle is a no-op: the row is no longer pending.
	require.NoError(t, repo.MarkEmailSent(ctx, db, items[0].ID))
}

func TestMarkEmailFailedRetriesThenParks(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	seedEmail(t, db, 1, domain.StatusPending)

	items, err := repo.FetchEmailsForWork(ctx, db, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	for attempt := 1; attempt < domain.MaxEmailAttempts; attempt++ {
		require.NoError(t, repo.MarkEmailFailed(ctx, db, id, "smtp timeout"))

		var item domain.EmailQueueItem
		require.NoError(t, db.First(&item, "id = ?", id).Error)
		require.Equal(t, domain.StatusPending, item.Status)
		require.Equal(t, attempt, item.Attempts)
		require.Equal(t, "smtp timeout", item.LastError)
	}

	require.NoError(t, repo.MarkEmailFailed(ctx, db, id, "smtp timeout"))

	var parked domain.EmailQueueItem
	require.NoError(t, db.First(&parked, "id = ?", id).Error)
	require.Equal(t, domain.StatusFailed, parked.Status)
	require.Equal(t, domain.MaxEmailAttempts, parked.Attempts)
}
