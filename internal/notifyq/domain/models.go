// Package domain contains the outbound notification queues the dispatcher
// writes and the delivery workers drain.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Delivery states shared by all queue tables.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// maxEmailAttempts is how many delivery tries an email gets before it is
// parked as failed.
const MaxEmailAttempts = 5

// EmailQueueItem is one email awaiting delivery by the drain worker.
type EmailQueueItem struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;index"`
	AlertID    snowflake.ID `gorm:"not null;index"`
	ToAddress  string       `gorm:"type:text;not null"`
	Subject    string       `gorm:"type:text;not null"`
	Body       string       `gorm:"type:text"`
	Status     string       `gorm:"type:text;not null;default:pending;index"`
	Attempts   int          `gorm:"not null;default:0"`
	LastError  string       `gorm:"type:text"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	SentAt     *time.Time
}

// TableName sets the database table name.
func (EmailQueueItem) TableName() string { return "email_queue" }

// PhoneCallSchedule is one voice callout handed to the external call
// platform. Rows are written here and picked up by the platform's poller;
// this service never dials.
type PhoneCallSchedule struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	PropertyID   snowflake.ID `gorm:"not null;index"`
	AlertID      snowflake.ID `gorm:"not null;index"`
	TargetNumber string       `gorm:"type:text;not null"`
	Message      string       `gorm:"type:text"`
	Status       string       `gorm:"type:text;not null;default:pending;index"`
	ScheduledAt  time.Time    `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PhoneCallSchedule) TableName() string { return "phone_call_schedules" }

// SMSSchedule is one text message handed to the external SMS platform.
type SMSSchedule struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	PropertyID   snowflake.ID `gorm:"not null;index"`
	AlertID      snowflake.ID `gorm:"not null;index"`
	TargetNumber string       `gorm:"type:text;not null"`
	Message      string       `gorm:"type:text"`
	Status       string       `gorm:"type:text;not null;default:pending;index"`
	ScheduledAt  time.Time    `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SMSSchedule) TableName() string { return "sms_schedules" }
