package service

import (
	"fmt"
	"time"

	localtimedomain "github.com/stayware/callguard/internal/localtime/domain"
)

type ianaConverter struct{}

// NewConverter returns the zone-database backed converter. The returned
// times are wall-clock values re-pinned to UTC so that equality (and the
// dedup natural key built on it) never depends on Location identity.
func NewConverter() localtimedomain.Converter {
	return &ianaConverter{}
}

func (ianaConverter) ToZone(t time.Time, zoneName string) (time.Time, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", localtimedomain.ErrUnknownZone, zoneName)
	}
	local := t.In(loc)
	return time.Date(
		local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(),
		time.UTC,
	), nil
}
