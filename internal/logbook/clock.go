package logbook

import (
	"sync"
	"time"
)

// TimestampSource hands out record timestamps (ms since epoch).
type TimestampSource interface {
	Next() int64
}

// MonotonicClock returns wall clock milliseconds, bumped by one whenever
// the clock did not move since the last call, so two submissions made in
// the same millisecond still get distinct record keys.
type MonotonicClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

func (c *MonotonicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}
