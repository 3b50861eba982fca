// Package domain contains the alert record: the persisted outcome of an
// emergency call that doubles as the operator-facing row and the anchor
// every dedup decision is made against.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AlertTypeEmergency is the alert type code for 911 calls. Other codes are
// reserved for future alarm sources sharing the table.
const AlertTypeEmergency = 9

// Acknowledgment states.
const (
	AckStatePending = "pending"
	AckStateAcked   = "acked"
)

// AlertRecord is one raised alert. The natural-key columns (alert_type,
// property_id, local_time, extension) carry a composite unique index so two
// processors racing on the same call cannot both insert.
type AlertRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	AlertType  int          `gorm:"not null;uniqueIndex:ux_alert_records_natural_key,priority:1" json:"alert_type"`
	PropertyID snowflake.ID `gorm:"not null;uniqueIndex:ux_alert_records_natural_key,priority:2;index:idx_alert_records_ack_ip,priority:1" json:"property_id"`
	LocalTime  time.Time    `gorm:"not null;uniqueIndex:ux_alert_records_natural_key,priority:3" json:"local_time"`
	Extension  string       `gorm:"type:text;uniqueIndex:ux_alert_records_natural_key,priority:4" json:"extension"`

	// TimeSource records which normalization fallback produced LocalTime.
	TimeSource string `gorm:"type:text" json:"time_source"`

	RoomNumber   string `gorm:"type:text" json:"room_number"`
	GuestName    string `gorm:"type:text" json:"guest_name"`
	CallerName   string `gorm:"type:text" json:"caller_name"`
	PhoneNumber  string `gorm:"type:text" json:"phone_number"`
	EnterpriseID string `gorm:"type:text" json:"enterprise_id"`
	GroupID      string `gorm:"type:text" json:"group_id"`
	SourceIP     string `gorm:"type:text" json:"source_ip"`

	// AckIP is stamped after dispatch with the event's source address and
	// is what the vendor IP matcher compares against. Empty until stamped.
	AckIP string `gorm:"type:text;index:idx_alert_records_ack_ip,priority:2" json:"ack_ip"`

	AckState string     `gorm:"type:text;not null;default:pending;index" json:"ack_state"`
	AckBy    string     `gorm:"type:text" json:"ack_by"`
	AckedAt  *time.Time `json:"acked_at"`

	Subject       string `gorm:"type:text" json:"subject"`
	Body          string `gorm:"type:text" json:"body"`
	LegacyMessage string `gorm:"type:text" json:"legacy_message"`

	RawSnapshot datatypes.JSONMap `gorm:"type:jsonb" json:"raw_snapshot"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (AlertRecord) TableName() string { return "alert_records" }

// Acked reports whether the alert has been acknowledged.
func (a AlertRecord) Acked() bool { return a.AckState == AckStateAcked }
