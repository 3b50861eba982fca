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

	"github.com/stayware/callguard/internal/alert/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AlertRecord{}))
	return db
}

func baseRecord(node *snowflake.Node, propertyID snowflake.ID, localTime time.Time) *domain.AlertRecord {
	return &domain.AlertRecord{
		ID:         node.Generate(),
		AlertType:  domain.AlertTypeEmergency,
		PropertyID: propertyID,
		LocalTime:  localTime,
		Extension:  "104",
		AckState:   domain.AckStatePending,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestCreateIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	propertyID := node.Generate()
	localTime := time.Date(2026, 3, 14, 2, 26, 53, 0, time.UTC)

	first := baseRecord(node, propertyID, localTime)
	created, survivor, err := repo.CreateIfAbsent(ctx, db, first)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, first.ID, survivor.ID)

	second := baseRecord(node, propertyID, localTime)
	created, survivor, err = repo.CreateIfAbsent(ctx, db, second)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, survivor.ID, "conflict must return the winning row")

	var count int64
	require.NoError(t, db.Model(&domain.AlertRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateIfAbsentDistinctNaturalKeys(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	propertyID := node.Generate()
	localTime := time.Date(2026, 3, 14, 2, 26, 53, 0, time.UTC)

	first := baseRecord(node, propertyID, localTime)
	_, _, err := repo.CreateIfAbsent(ctx, db, first)
	require.NoError(t, err)

	// Same second, different extension: a distinct emergency.
	second := baseRecord(node, propertyID, localTime)
	second.Extension = "105"
	created, _, err := repo.CreateIfAbsent(ctx, db, second)
	require.NoError(t, err)
	require.True(t, created)

	// Different second, same extension: also distinct.
	third := baseRecord(node, propertyID, localTime.Add(time.Second))
	created, _, err = repo.CreateIfAbsent(ctx, db, third)
	require.NoError(t, err)
	require.True(t, created)
}

func TestFindByAckIP(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	propertyID := node.Generate()

	older := baseRecord(node, propertyID, time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC))
	older.AckIP = "10.4.0.17"
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(older).Error)

	newer := baseRecord(node, propertyID, time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC))
	newer.AckIP = "10.4.0.17"
	require.NoError(t, db.Create(newer).Error)

	got, err := repo.FindByAckIP(ctx, db, domain.AlertTypeEmergency, propertyID, "10.4.0.17")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, newer.ID, got.ID, "newest stamped row wins")

	got, err = repo.FindByAckIP(ctx, db, domain.AlertTypeEmergency, propertyID, "")
	require.NoError(t, err)
	require.Nil(t, got, "empty ack ip never matches")

	got, err = repo.FindByAckIP(ctx, db, domain.AlertTypeEmergency, node.Generate(), "10.4.0.17")
	require.NoError(t, err)
	require.Nil(t, got, "other properties are not consulted")
}

func TestStampAckIP(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	record := baseRecord(node, node.Generate(), time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(record).Error)

	stamped, err := repo.StampAckIP(ctx, db, record.ID, "10.4.0.17")
	require.NoError(t, err)
	require.True(t, stamped)

	got, err := repo.FindByID(ctx, db, record.ID)
	require.NoError(t, err)
	require.Equal(t, "10.4.0.17", got.AckIP)

	stamped, err = repo.StampAckIP(ctx, db, node.Generate(), "10.4.0.17")
	require.NoError(t, err)
	require.False(t, stamped, "missing row is skipped, not an error")

	stamped, err = repo.StampAckIP(ctx, db, record.ID, "")
	require.NoError(t, err)
	require.False(t, stamped, "empty ip is never stamped")
}

func TestAcknowledgeFlipsPendingOnce(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	record := baseRecord(node, node.Generate(), time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(record).Error)

	at := time.Date(2026, 3, 14, 2, 5, 0, 0, time.UTC)
	flipped, err := repo.Acknowledge(ctx, db, record.ID, "frontdesk", at)
	require.NoError(t, err)
	require.True(t, flipped)

	got, err := repo.FindByID(ctx, db, record.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AckStateAcked, got.AckState)
	require.Equal(t, "frontdesk", got.AckBy)
	require.NotNil(t, got.AckedAt)

	flipped, err = repo.Acknowledge(ctx, db, record.ID, "someone-else", at.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, flipped, "acked rows are not re-acked")

	got, err = repo.FindByID(ctx, db, record.ID)
	require.NoError(t, err)
	require.Equal(t, "frontdesk", got.AckBy, "first acknowledgment is preserved")
}

func TestListFiltersAndPages(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	node, _ := snowflake.NewNode(1)
	ctx := context.Background()

	propertyID := node.Generate()
	base := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		record := baseRecord(node, propertyID, base.Add(time.Duration(i)*time.Minute))
		record.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i == 0 {
			record.AckState = domain.AckStateAcked
		}
		require.NoError(t, db.Create(record).Error)
	}

	pending, err := repo.List(ctx, db, domain.ListFilter{
		PropertyID: propertyID,
		AckState:   domain.AckStatePending,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, pending, 4)

	page, err := repo.List(ctx, db, domain.ListFilter{PropertyID: propertyID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 3, "limit+1 rows signal another page")
	require.True(t, page[0].CreatedAt.After(page[1].CreatedAt), "newest first")

	cursorRow := page[1]
	rest, err := repo.List(ctx, db, domain.ListFilter{
		PropertyID: propertyID,
		Limit:      10,
		Cursor: &domain.AlertCursor{
			ID:        cursorRow.ID,
			CreatedAt: cursorRow.CreatedAt,
		},
	})
	require.NoError(t, err)
	require.Len(t, rest, 3)
	for _, record := range rest {
		require.True(t, record.CreatedAt.Before(cursorRow.CreatedAt))
	}
}
