// Package domain contains the room-directory models used to attach guest
// context to an alert: provisioned extensions, rooms, and guest stays.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Extension is one provisioned line at a property. Secondary lines point at
// their primary via PrimaryExtension; a primary line leaves it empty.
type Extension struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	PropertyID       snowflake.ID `gorm:"not null;uniqueIndex:ux_extensions_property_ext,priority:1"`
	Extension        string       `gorm:"type:text;not null;uniqueIndex:ux_extensions_property_ext,priority:2"`
	Name             string       `gorm:"type:text"`
	PrimaryExtension string       `gorm:"type:text"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Extension) TableName() string { return "extensions" }

// Room ties a room number to the extension installed in it.
type Room struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;uniqueIndex:ux_rooms_property_ext,priority:1"`
	RoomNumber string       `gorm:"type:text;not null"`
	Extension  string       `gorm:"type:text;not null;uniqueIndex:ux_rooms_property_ext,priority:2"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Room) TableName() string { return "rooms" }

// Guest is one stay. MovedOutAt nil marks the current occupant.
type Guest struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;index:idx_guests_property_room,priority:1"`
	RoomNumber string       `gorm:"type:text;not null;index:idx_guests_property_room,priority:2"`
	Name       string       `gorm:"type:text;not null"`
	MovedInAt  time.Time    `gorm:"not null"`
	MovedOutAt *time.Time
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Guest) TableName() string { return "guests" }
