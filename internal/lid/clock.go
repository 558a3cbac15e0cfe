package lid

import "sync/atomic"

// clock is a monotonic logical clock stamping registrations with their
// creation order.
//
// Sequence numbers never use wall-clock time, so the creation order of a run
// is recovered identically on replay.
type clock struct {
	seq atomic.Int64
}

// next returns the next sequence number. The first call returns 1.
func (c *clock) next() int64 {
	return c.seq.Add(1)
}

// reset rewinds the clock to 0.
func (c *clock) reset() {
	c.seq.Store(0)
}
