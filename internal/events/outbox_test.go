package events

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestOutbox(t *testing.T) (*gorm.DB, Publisher) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&EventOutbox{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	pub := NewOutbox(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Feed:  nil,
	})
	return db, pub
}

func TestPublishWritesDurableRow(t *testing.T) {
	db, pub := newTestOutbox(t)
	ctx := context.Background()

	err := pub.Publish(ctx, Event{
		Topic:     TopicAlertRaised,
		DedupeKey: "alert-42",
		Payload:   datatypes.JSONMap{"property_id": "7", "extension": "104"},
	})
	require.NoError(t, err)

	var rows []EventOutbox
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, TopicAlertRaised, rows[0].Topic)
	require.Equal(t, "alert-42", rows[0].DedupeKey)
	// No feed configured, so the row waits for a relay.
	require.Equal(t, OutboxStatusPending, rows[0].Status)
	require.Nil(t, rows[0].PublishedAt)
}

func TestPublishIsIdempotentPerDedupeKey(t *testing.T) {
	db, pub := newTestOutbox(t)
	ctx := context.Background()

	event := Event{
		Topic:     TopicAlertRaised,
		DedupeKey: "alert-42",
		Payload:   datatypes.JSONMap{"extension": "104"},
	}
	require.NoError(t, pub.Publish(ctx, event))
	require.NoError(t, pub.Publish(ctx, event))

	var count int64
	require.NoError(t, db.Model(&EventOutbox{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPublishSameKeyDifferentTopics(t *testing.T) {
	db, pub := newTestOutbox(t)
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, Event{Topic: TopicAlertRaised, DedupeKey: "alert-42"}))
	require.NoError(t, pub.Publish(ctx, Event{Topic: "callguard.alert.acked", DedupeKey: "alert-42"}))

	var count int64
	require.NoError(t, db.Model(&EventOutbox{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestPublishRejectsIncompleteEvents(t *testing.T) {
	_, pub := newTestOutbox(t)
	ctx := context.Background()

	err := pub.Publish(ctx, Event{DedupeKey: "alert-42"})
	require.ErrorIs(t, err, ErrMissingTopic)

	err = pub.Publish(ctx, Event{Topic: TopicAlertRaised})
	require.ErrorIs(t, err, ErrMissingDedupeKey)
}
