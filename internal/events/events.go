// Package events publishes pipeline events to integrators. Every event is
// written to a durable outbox table; when a Redis feed is configured the
// event is also pushed to a pub/sub channel for live consumers.
package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TopicAlertRaised announces a newly created emergency alert.
const TopicAlertRaised = "callguard.alert.raised"

// Outbox row states.
const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
)

// Event is one pipeline occurrence handed to Publish. DedupeKey makes the
// publish idempotent per topic: replaying the same key is a no-op.
type Event struct {
	Topic     string
	DedupeKey string
	Payload   datatypes.JSONMap
}

// EventOutbox is the durable record of an emitted event. Rows stay pending
// when no live feed is configured; an external relay can drain them.
type EventOutbox struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	Topic       string            `gorm:"type:text;not null;uniqueIndex:ux_event_outbox_dedupe,priority:1"`
	DedupeKey   string            `gorm:"type:text;not null;uniqueIndex:ux_event_outbox_dedupe,priority:2"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb"`
	Status      string            `gorm:"type:text;not null;default:pending;index"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	PublishedAt *time.Time
}

// TableName sets the database table name.
func (EventOutbox) TableName() string { return "event_outbox" }
