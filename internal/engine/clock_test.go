package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Reconcile(t *testing.T) {
	c := NewClock()

	// No firing and no buffer: the clock ticks.
	c.Reconcile(0)
	assert.Equal(t, 1, c.Now())
	assert.Equal(t, 0, c.Buffer())

	// A two-operand gate fires: clock jumps, excess becomes buffer.
	c.Reconcile(4)
	assert.Equal(t, 4, c.Now())
	assert.Equal(t, 3, c.Buffer())

	// Move-only steps spend the buffer first.
	for want := 2; want >= 0; want-- {
		c.Reconcile(4)
		assert.Equal(t, 4, c.Now())
		assert.Equal(t, want, c.Buffer())
	}
	c.Reconcile(4)
	assert.Equal(t, 5, c.Now())

	// A new firing replaces any leftover buffer.
	c.Reconcile(6)
	c.Reconcile(7)
	assert.Equal(t, 7, c.Now())
	assert.Equal(t, 1, c.Buffer())
}
