package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// UnoccupiedRoom is the display value used when the ringing room exists but
// has no current guest. Distinct from NoLocation, which means the extension
// maps to no room or name at all.
const UnoccupiedRoom = "Unoccupied room"

// CallContext is the human context attached to an alert: the effective
// (primary) extension, the room it rings in, and who is staying there.
type CallContext struct {
	Extension  string
	RoomNumber string

	// GuestName is the occupant's name, or UnoccupiedRoom when the room has
	// no current stay. Empty when no room association exists.
	GuestName string
	GuestID   snowflake.ID

	// LocationName is the provisioned extension name, filled only when the
	// extension has no room association.
	LocationName string

	// NoLocation marks an event with no resolvable location context: no
	// room and no extension name.
	NoLocation bool
}

type Repository interface {
	FindExtension(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, extension string) (*Extension, error)
	FindRoomByExtension(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, extension string) (*Room, error)
	// FindCurrentGuest returns the most recent stay in the room that has
	// not ended.
	FindCurrentGuest(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, roomNumber string) (*Guest, error)
}

// Service attaches room and guest context to a call. Enrichment is best
// effort: missing directory rows degrade to placeholders, never to a failed
// alert.
type Service interface {
	Enrich(ctx context.Context, propertyID snowflake.ID, extension string) (CallContext, error)
}
