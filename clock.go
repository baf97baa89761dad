package event

import "time"

// Clock is the reactor's time source. Readings must be monotonic and have at
// least millisecond resolution; the reactor only ever compares readings
// against each other, never against wall-clock time from elsewhere.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system's monotonic clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
