package utils

import (
	"fmt"
	"time"
)

// Clock supplies the civil quiz date. All "one quiz per day" decisions flow
// through a single fixed timezone; nothing in the core reads machine-local
// time directly.
type Clock interface {
	// Today returns midnight of the current calendar date in the configured
	// location, normalized to UTC for storage in date columns.
	Today() time.Time

	// Now returns the current instant in the configured location.
	Now() time.Time
}

// CivilClock is the production Clock, pinned to one IANA location.
type CivilClock struct {
	loc *time.Location
}

func NewCivilClock(timezone string) (*CivilClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &CivilClock{loc: loc}, nil
}

func (c *CivilClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *CivilClock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// FixedClock serves a constant date. Test helper.
type FixedClock struct {
	Date time.Time
}

func (c *FixedClock) Now() time.Time   { return c.Date }
func (c *FixedClock) Today() time.Time {
	return time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), 0, 0, 0, 0, time.UTC)
}
