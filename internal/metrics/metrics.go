// Package metrics counts scheduler activity on a private prometheus
// registry. A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the run counters.
type Collector struct {
	reg *prometheus.Registry

	strideMoves prometheus.Counter
	cascades    *prometheus.CounterVec
	cascadeHops prometheus.Histogram
	evictions   prometheus.Counter
	gatesFired  *prometheus.CounterVec
	timesteps   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		strideMoves: f.NewCounter(prometheus.CounterOpts{
			Name: "ionshuttle_stride_moves_total",
			Help: "Single-hop advances along a carrier's path",
		}),
		cascades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ionshuttle_cascades_total",
			Help: "Obstacle and egress cascades by outcome",
		}, []string{"outcome"}),
		cascadeHops: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ionshuttle_cascade_hops",
			Help:    "Hops committed by a successful cascade",
			Buckets: prometheus.LinearBuckets(1, 1, 8),
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "ionshuttle_evictions_total",
			Help: "Carriers sent back from the parking edge",
		}),
		gatesFired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ionshuttle_gates_fired_total",
			Help: "Operations executed in the processing zone by operand count",
		}, []string{"arity"}),
		timesteps: f.NewGauge(prometheus.GaugeOpts{
			Name: "ionshuttle_timesteps",
			Help: "Logical clock of the current run",
		}),
	}
}

// Registry exposes the private registry, e.g. for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.reg
}

func (c *Collector) Stride() {
	if c == nil {
		return
	}
	c.strideMoves.Inc()
}

// Cascade records a cascade outcome ("moved" or "rolled_back") and, for a
// committed cascade, the number of hops it took.
func (c *Collector) Cascade(outcome string, hops int) {
	if c == nil {
		return
	}
	c.cascades.WithLabelValues(outcome).Inc()
	if hops > 0 {
		c.cascadeHops.Observe(float64(hops))
	}
}

func (c *Collector) Eviction() {
	if c == nil {
		return
	}
	c.evictions.Inc()
}

func (c *Collector) GateFired(arity int) {
	if c == nil {
		return
	}
	c.gatesFired.WithLabelValues(fmt.Sprint(arity)).Inc()
}

func (c *Collector) SetTimesteps(n int) {
	if c == nil {
		return
	}
	c.timesteps.Set(float64(n))
}

// Snapshot gathers counter and gauge values keyed by name plus labels,
// e.g. `ionshuttle_cascades_total{outcome="moved"}`. Histograms report
// their sample count under name + "_count".
func (c *Collector) Snapshot() (map[string]float64, error) {
	out := map[string]float64{}
	if c == nil {
		return out, nil
	}
	families, err := c.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()+"_count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

// Lines renders a snapshot as sorted "key value" lines.
func Lines(snap map[string]float64) []string {
	lines := make([]string, 0, len(snap))
	for k, v := range snap {
		lines = append(lines, fmt.Sprintf("%s %g", k, v))
	}
	sort.Strings(lines)
	return lines
}
