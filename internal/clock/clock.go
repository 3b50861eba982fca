package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so pipeline stages and workers stay testable.
type Clock interface {
	Now() time.Time
}

// Module provides the real clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type systemClock struct{}

// NewSystemClock returns a Clock backed by the wall clock, in UTC.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
