// Package metrics registers the prometheus collectors a running Netlist
// reports: ticks advanced, transfers completed per stream, and cycles
// spent stalled on backpressure per stream.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "streamfab"

// Collector owns its own prometheus.Registry so multiple Netlists (e.g.
// one per test) never collide on default-registry double-registration.
type Collector struct {
	registry *prometheus.Registry

	ticks         prometheus.Counter
	transfers     *prometheus.CounterVec
	backpressure  *prometheus.CounterVec
}

// New builds a Collector and registers its metrics on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Clock edges advanced by Netlist.Tick.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Beats transferred (valid && ready) per stream.",
		}, []string{"stream"}),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_cycles_total",
			Help:      "Cycles a stream held valid without ready (stalled).",
		}, []string{"stream"}),
	}
	reg.MustRegister(c.ticks, c.transfers, c.backpressure)
	return c
}

// Registry exposes the underlying registry, e.g. for promhttp.HandlerFor
// in cmd/streamsim serve.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveTick increments the tick counter.
func (c *Collector) ObserveTick() { c.ticks.Inc() }

// ObserveTransfer increments the per-stream transfer counter.
func (c *Collector) ObserveTransfer(stream string) { c.transfers.WithLabelValues(stream).Inc() }

// ObserveBackpressure increments the per-stream stalled-cycle counter.
func (c *Collector) ObserveBackpressure(stream string) { c.backpressure.WithLabelValues(stream).Inc() }
