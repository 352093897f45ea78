package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so sweeps and expiry checks are testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystemClock() Clock {
	return &SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
