package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	alertrepo "github.com/stayware/callguard/internal/alert/repository"
	"github.com/stayware/callguard/internal/clock"
	"github.com/stayware/callguard/pkg/db/pagination"
)

func newTestService(t *testing.T) (alertdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&alertdomain.AlertRecord{}))

	node, _ := snowflake.NewNode(1)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  alertrepo.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
	})
	return svc, db, node
}

func seedAlert(t *testing.T, db *gorm.DB, node *snowflake.Node, propertyID snowflake.ID, createdAt time.Time) *alertdomain.AlertRecord {
	t.Helper()

	record := &alertdomain.AlertRecord{
		ID:         node.Generate(),
		AlertType:  alertdomain.AlertTypeEmergency,
		PropertyID: propertyID,
		LocalTime:  createdAt,
		Extension:  "104",
		AckState:   alertdomain.AckStatePending,
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestListRejectsBadFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, alertdomain.ListAlertsRequest{PropertyID: "not-a-number"})
	require.ErrorIs(t, err, alertdomain.ErrInvalidProperty)

	_, err = svc.List(ctx, alertdomain.ListAlertsRequest{AckState: "resolved"})
	require.ErrorIs(t, err, alertdomain.ErrInvalidAckState)
}

func TestListPagesWithToken(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	propertyID := node.Generate()
	base := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedAlert(t, db, node, propertyID, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := svc.List(ctx, alertdomain.ListAlertsRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Alerts, 2)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(ctx, alertdomain.ListAlertsRequest{
		Pagination: pagination.Pagination{PageToken: first.NextPageToken, PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, second.Alerts, 1)
	require.False(t, second.HasMore)

	_, err = svc.List(ctx, alertdomain.ListAlertsRequest{
		Pagination: pagination.Pagination{PageToken: "@@not-base64@@", PageSize: 2},
	})
	require.ErrorIs(t, err, alertdomain.ErrInvalidPageToken)
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	record := seedAlert(t, db, node, node.Generate(), time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC))

	acked, err := svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{
		AlertID: record.ID.String(),
		Actor:   "frontdesk",
	})
	require.NoError(t, err)
	require.Equal(t, alertdomain.AckStateAcked, acked.AckState)
	require.Equal(t, "frontdesk", acked.AckBy)
	require.NotNil(t, acked.AckedAt)

	again, err := svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{
		AlertID: record.ID.String(),
		Actor:   "night-shift",
	})
	require.NoError(t, err)
	require.Equal(t, "frontdesk", again.AckBy, "second acknowledgment does not overwrite")
}

func TestAcknowledgeValidation(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	_, err := svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{AlertID: "junk", Actor: "frontdesk"})
	require.ErrorIs(t, err, alertdomain.ErrInvalidAlertID)

	_, err = svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{AlertID: node.Generate().String(), Actor: "frontdesk"})
	require.ErrorIs(t, err, alertdomain.ErrAlertNotFound)

	_, err = svc.Acknowledge(ctx, alertdomain.AcknowledgeRequest{AlertID: node.Generate().String(), Actor: "  "})
	require.ErrorIs(t, err, alertdomain.ErrInvalidActor)
}
