package forecast

import (
	"time"

	"tsfeed/internal/interval"
)

// Cursor invents future timestamps from a last-known timestamp and a fixed
// delta. Peek is pure; Read commits one step. Cursors share no mutable state,
// so copies diverge independently.
type Cursor struct {
	last  time.Time
	delta interval.Delta
}

func NewCursor(last time.Time, delta interval.Delta) *Cursor {
	return &Cursor{last: last, delta: delta}
}

// Peek returns the next expected timestamp without advancing
func (c *Cursor) Peek() time.Time {
	return c.delta.AddTo(c.last)
}

// Read advances the cursor one step and returns the new timestamp
func (c *Cursor) Read() time.Time {
	c.last = c.delta.AddTo(c.last)
	return c.last
}

// SetLatest rebases the cursor once real data arrives, discarding any
// speculative advancement
func (c *Cursor) SetLatest(ts time.Time) {
	c.last = ts
}

// Copy returns an independent cursor starting from the same point
func (c *Cursor) Copy() *Cursor {
	return &Cursor{last: c.last, delta: c.delta}
}

// Last returns the cursor's current base timestamp
func (c *Cursor) Last() time.Time {
	return c.last
}

// Delta returns the cursor's step
func (c *Cursor) Delta() interval.Delta {
	return c.delta
}
