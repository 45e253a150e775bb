package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.Stride()
	c.Stride()
	c.Cascade("moved", 2)
	c.Cascade("rolled_back", 0)
	c.Eviction()
	c.GateFired(2)
	c.GateFired(1)
	c.GateFired(2)
	c.SetTimesteps(17)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.strideMoves))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cascades.WithLabelValues("moved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.gatesFired.WithLabelValues("2")))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap["ionshuttle_stride_moves_total"])
	assert.Equal(t, 1.0, snap[`ionshuttle_cascades_total{outcome="moved"}`])
	assert.Equal(t, 1.0, snap[`ionshuttle_cascades_total{outcome="rolled_back"}`])
	assert.Equal(t, 1.0, snap["ionshuttle_evictions_total"])
	assert.Equal(t, 1.0, snap[`ionshuttle_gates_fired_total{arity="1"}`])
	assert.Equal(t, 2.0, snap[`ionshuttle_gates_fired_total{arity="2"}`])
	assert.Equal(t, 17.0, snap["ionshuttle_timesteps"])
	// Only the committed cascade is observed.
	assert.Equal(t, 1.0, snap["ionshuttle_cascade_hops_count"])
}

func TestCollectorsAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.Stride()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.strideMoves))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.strideMoves))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Stride()
		c.Cascade("moved", 3)
		c.Eviction()
		c.GateFired(2)
		c.SetTimesteps(1)
	})
	assert.Nil(t, c.Registry())
	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestLines(t *testing.T) {
	lines := Lines(map[string]float64{"b": 2, "a": 1.5})
	assert.Equal(t, []string{"a 1.5", "b 2"}, lines)
}
