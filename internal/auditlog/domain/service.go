package domain

import (
	"context"
	"errors"
	"time"
)

// Stage labels recorded on the trail. Downstream log tooling greps for these
// exact strings, so they stay stable even when the pipeline internals move.
const (
	StageEntry            = "Entry"
	StageRejected         = "Rejected"
	StagePropertyNotFound = "Property not found"
	StageConvertedTime    = "Converted time"
	StageExemptDigits     = "Exempt digits"
	StageDuplicateFound   = "Duplicate found"
	StageAlertCreated     = "Alert created"
	StageStorageFailure   = "Storage failure"
)

// Entry is one line on the call-processing trail.
type Entry struct {
	Stage        string
	OccurredAt   time.Time
	EnterpriseID string
	GroupID      string
	UserID       string
	Extension    string
	PhoneNumber  string
	Detail       string
}

// Service appends processing-trail entries. Writes are best effort: the
// pipeline must never fail a call because the trail could not be written,
// so implementations log and swallow their own errors.
type Service interface {
	Record(ctx context.Context, e Entry)
	Close() error
}

var ErrTrailClosed = errors.New("audit trail closed")
