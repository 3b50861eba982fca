package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AlertCursor points past the last row of a page, ordered
// (created_at DESC, id DESC).
type AlertCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// ListFilter narrows a page of alert records.
type ListFilter struct {
	PropertyID snowflake.ID
	AckState   string
	AlertType  int
	Cursor     *AlertCursor
	Limit      int
}

// Repository is the persistence surface for alert records. It carries the
// dedup primitives: the compare-and-create insert and the single-attempt
// acknowledgment-IP stamp.
type Repository interface {
	// CreateIfAbsent inserts the record unless one with the same natural
	// key already exists. It reports whether this call created the row and
	// returns the surviving record either way.
	CreateIfAbsent(ctx context.Context, db *gorm.DB, record *AlertRecord) (bool, *AlertRecord, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AlertRecord, error)

	// FindByAckIP returns the newest alert of the given type at the
	// property whose stamped acknowledgment IP equals ackIP.
	FindByAckIP(ctx context.Context, db *gorm.DB, alertType int, propertyID snowflake.ID, ackIP string) (*AlertRecord, error)

	FindByNaturalKey(ctx context.Context, db *gorm.DB, alertType int, propertyID snowflake.ID, localTime time.Time, extension string) (*AlertRecord, error)

	// StampAckIP writes the acknowledgment IP onto the row using a single
	// skip-locked claim attempt. A row held by another worker is skipped,
	// never waited on; the stamp is then simply lost.
	StampAckIP(ctx context.Context, db *gorm.DB, id snowflake.ID, ackIP string) (bool, error)

	// Acknowledge flips a pending alert to acked. Returns false when the
	// row was not pending.
	Acknowledge(ctx context.Context, db *gorm.DB, id snowflake.ID, actor string, at time.Time) (bool, error)

	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AlertRecord, error)
}
