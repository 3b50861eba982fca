package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/stayware/callguard/pkg/db"
)

var (
	ErrMissingTopic     = errors.New("missing_topic")
	ErrMissingDedupeKey = errors.New("missing_dedupe_key")
)

// Publisher emits pipeline events. Publish is idempotent per
// (topic, dedupe key) pair.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Feed  *Feed `optional:"true"`
}

// Outbox is the durable Publisher. The outbox row is the source of truth;
// the Redis feed push is best effort and never fails the publish.
type Outbox struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	feed  *Feed
}

func NewOutbox(p Params) Publisher {
	return &Outbox{
		db:    p.DB,
		log:   p.Log.Named("events.outbox"),
		genID: p.GenID,
		feed:  p.Feed,
	}
}

type feedEnvelope struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	DedupeKey string            `json:"dedupe_key"`
	Payload   datatypes.JSONMap `json:"payload"`
}

func (o *Outbox) Publish(ctx context.Context, event Event) error {
	topic := strings.TrimSpace(event.Topic)
	if topic == "" {
		return ErrMissingTopic
	}
	dedupeKey := strings.TrimSpace(event.DedupeKey)
	if dedupeKey == "" {
		return ErrMissingDedupeKey
	}

	row := EventOutbox{
		ID:        o.genID.Generate(),
		Topic:     topic,
		DedupeKey: dedupeKey,
		Payload:   event.Payload,
		Status:    OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := o.db.WithContext(ctx).Create(&row).Error; err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			o.log.Debug("event already recorded",
				zap.String("topic", topic),
				zap.String("dedupe_key", dedupeKey),
			)
			return nil
		}
		return err
	}

	o.push(ctx, row)
	return nil
}

// push forwards the row to the live feed and marks it published. Failures
// leave the row pending for a relay to retry.
func (o *Outbox) push(ctx context.Context, row EventOutbox) {
	if !o.feed.Enabled() {
		return
	}

	body, err := json.Marshal(feedEnvelope{
		ID:        row.ID.String(),
		Topic:     row.Topic,
		DedupeKey: row.DedupeKey,
		Payload:   row.Payload,
	})
	if err != nil {
		o.log.Warn("failed to encode event for feed",
			zap.String("topic", row.Topic),
			zap.Error(err),
		)
		return
	}

	if err := o.feed.Publish(ctx, row.Topic, body); err != nil {
		o.log.Warn("failed to push event to feed",
			zap.String("topic", row.Topic),
			zap.String("dedupe_key", row.DedupeKey),
			zap.Error(err),
		)
		return
	}

	now := time.Now().UTC()
	err = o.db.WithContext(ctx).Exec(
		`UPDATE event_outbox
		 SET status = ?, published_at = ?
		 WHERE id = ? AND status = ?`,
		OutboxStatusPublished,
		now,
		row.ID,
		OutboxStatusPending,
	).Error
	if err != nil {
		o.log.Warn("failed to mark event published",
			zap.String("topic", row.Topic),
			zap.Error(err),
		)
	}
}
