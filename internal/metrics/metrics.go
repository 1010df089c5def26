// Package metrics keeps the relay's event counters in a Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
)

const (
	ConnectionsOpened = "connections_opened"
	ConnectionsClosed = "connections_closed"
	RoomsCreated      = "rooms_created"
	RoomsDeleted      = "rooms_deleted"
	Joins             = "joins"
	Leaves            = "leaves"
	AuthFailures      = "auth_failures"
	AuthRateLimited   = "auth_rate_limited"
	SignalsRelayed    = "signals_relayed"
	MediaRelayed      = "media_frames_relayed"
	DropUnauthorized  = "drop_unauthorized"
	DropNotMember     = "drop_not_member"
	DropBackpressure  = "drop_backpressure"
	BackpressureKicks = "backpressure_kicks"
)

// Metrics is a counter vector labelled by event name in its own registry.
// A nil *Metrics is valid and discards everything.
type Metrics struct {
	reg    *prometheus.Registry
	events *prometheus.CounterVec
}

func New() *Metrics {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_relay",
		Name:      "events_total",
		Help:      "Internal event counters.",
	}, []string{"event"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{reg: reg, events: events}
}

func (m *Metrics) Inc(name string) { m.Add(name, 1) }

func (m *Metrics) Add(name string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.events.WithLabelValues(name).Add(float64(n))
}

// Get reads one counter; unknown names read as zero.
func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	c, err := m.events.GetMetricWithLabelValues(name)
	if err != nil {
		return 0
	}
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	return uint64(out.GetCounter().GetValue())
}

// Registry exposes the underlying registry, e.g. for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}
