package engine

// Clock is the logical clock of a run.
//
// Gate latency is charged to the clock when a gate fires, and the excess
// is kept as a buffer: later move-only timesteps spend the buffer before
// the visible clock advances again. Gate latency thereby overlaps with
// carrier motion instead of adding to it.
type Clock struct {
	now    int
	buffer int
}

// NewClock creates a clock at 0 with an empty buffer.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the visible clock.
func (c *Clock) Now() int {
	return c.now
}

// Buffer returns the slack left from the last firing.
func (c *Clock) Buffer() int {
	return c.buffer
}

// Reconcile folds the clock returned by the processing zone into c.
// A later clock means a gate fired: the difference becomes the buffer.
// An unchanged clock spends one unit of buffer, or advances the clock by
// one when the buffer is empty.
func (c *Clock) Reconcile(next int) {
	if next != c.now {
		c.buffer = next - c.now
		c.now = next
		return
	}
	if c.buffer > 0 {
		c.buffer--
		return
	}
	c.now++
}
