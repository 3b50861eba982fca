// Package domain contains the channel configuration rows and the dispatch
// contract: which channels fire for an alert and what gets queued on each.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChannelDefaults is a property's baseline channel switches. At most one row
// per property; properties without a row fall back to process-level config.
type ChannelDefaults struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PropertyID snowflake.ID `gorm:"not null;uniqueIndex" json:"property_id"`
	Email      bool         `gorm:"not null;default:false" json:"email"`
	Phone      bool         `gorm:"not null;default:false" json:"phone"`
	SMS        bool         `gorm:"not null;default:false" json:"sms"`
	Popup      bool         `gorm:"not null;default:false" json:"popup"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ChannelDefaults) TableName() string { return "property_channel_defaults" }

// ChannelOverride adjusts the defaults for one alert type. A nil channel
// keeps the default; a set channel replaces it outright.
type ChannelOverride struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PropertyID snowflake.ID `gorm:"not null;uniqueIndex:ux_alert_channel_overrides,priority:1" json:"property_id"`
	AlertType  int          `gorm:"not null;uniqueIndex:ux_alert_channel_overrides,priority:2" json:"alert_type"`
	Email      *bool        `json:"email"`
	Phone      *bool        `json:"phone"`
	SMS        *bool        `json:"sms"`
	Popup      *bool        `json:"popup"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ChannelOverride) TableName() string { return "alert_channel_overrides" }

// ChannelPlan is the resolved set of channels an alert fires on.
type ChannelPlan struct {
	Email bool `json:"email"`
	Phone bool `json:"phone"`
	SMS   bool `json:"sms"`
	Popup bool `json:"popup"`
}

// Apply folds an override into the plan, channel by channel.
func (p ChannelPlan) Apply(o ChannelOverride) ChannelPlan {
	if o.Email != nil {
		p.Email = *o.Email
	}
	if o.Phone != nil {
		p.Phone = *o.Phone
	}
	if o.SMS != nil {
		p.SMS = *o.SMS
	}
	if o.Popup != nil {
		p.Popup = *o.Popup
	}
	return p
}
