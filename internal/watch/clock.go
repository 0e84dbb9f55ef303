package watch

import (
	"sync"
	"time"
)

// SelfWriteSource reports when this process last touched the notes directory.
type SelfWriteSource interface {
	LastSelfWrite() time.Time
}

// Clock records self-write timestamps. The write coordinator owns one and
// hands it to the watcher, which drops events that land shortly after a mark.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock returns a Clock using the wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt returns a Clock that reads time from now. Used by tests.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Mark records a self-write at the current time.
func (c *Clock) Mark() {
	c.mu.Lock()
	c.last = c.now()
	c.mu.Unlock()
}

// LastSelfWrite implements SelfWriteSource.
func (c *Clock) LastSelfWrite() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
