package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Sources a normalized local time can come from, in fallback order.
const (
	SourceZone        = "iana_zone"
	SourceUTCHourDiff = "utc_hour_diff"
	SourceRawUTC      = "raw_utc"
)

// Normalized carries a call's property-local wall-clock time together with
// how it was derived. LocalTime keeps UTC as its Location; only the wall
// clock matters downstream, where it anchors dedup and operator display.
type Normalized struct {
	LocalTime time.Time
	Source    string
	Zone      string
}

// Converter turns a UTC instant into wall-clock time in a named IANA zone.
type Converter interface {
	ToZone(t time.Time, zoneName string) (time.Time, error)
}

type Service interface {
	Normalize(ctx context.Context, propertyID snowflake.ID, startUTC time.Time) (Normalized, error)
}

var ErrUnknownZone = errors.New("unknown_zone")
