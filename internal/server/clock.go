package server

import "time"

// Clock abstracts time.Now() to allow deterministic testing. The server
// uses it to pin "today" for calendar rendering and feed horizons.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
