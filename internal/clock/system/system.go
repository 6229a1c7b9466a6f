// Package system provides the wall clock injected into the store and the pipeline.
package system

import "time"

// Clock reads the wall clock in a fixed location.
type Clock struct {
	loc *time.Location
}

// New returns a Clock reporting UTC, used for event timestamps.
func New() *Clock {
	return &Clock{loc: time.UTC}
}

// NewLocal returns a Clock reporting local time, used for backup file names.
func NewLocal() *Clock {
	return &Clock{loc: time.Local}
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	if c == nil || c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
