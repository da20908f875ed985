package pv

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so stamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator abstracts prompt id generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// nextStamp returns the timestamp for an edit of a record last stamped at prev.
// The result is always strictly after prev, so an edit wins over the version
// it replaced even when the clock stalls or steps backwards.
func nextStamp(c Clock, prev time.Time) time.Time {
	now := c.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}
