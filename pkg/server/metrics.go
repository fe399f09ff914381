package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/padsync-dev/padsync/pkg/registry"
)

// metricsNamespace is the Prometheus namespace for all padsync metrics.
const metricsNamespace = "padsync"

// Metrics holds the gateway's Prometheus collectors. Session and member
// gauges read straight from registry stats; the rest are event counters
// bumped by the gateway.
type Metrics struct {
	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge
	EventsReceived    *prometheus.CounterVec
	EventErrors       *prometheus.CounterVec
	Broadcasts        prometheus.Counter
}

// NewMetrics registers padsync collectors with reg and returns the set the
// gateway increments. The registry-backed gauges are registered here too but
// need no further attention: they sample Stats() at scrape time.
func NewMetrics(reg prometheus.Registerer, r *registry.Registry) *Metrics {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_active",
		Help:      "Number of currently active sessions.",
	}, func() float64 { return float64(r.Stats().Active) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "members_active",
		Help:      "Total members across all active sessions.",
	}, func() float64 { return float64(r.Stats().Members) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_created_total",
		Help:      "Sessions created since process start.",
	}, func() float64 { return float64(r.Stats().TotalCreated) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_deleted_total",
		Help:      "Sessions deleted (emptied) since process start.",
	}, func() float64 { return float64(r.Stats().TotalDeleted) })

	return &Metrics{
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "WebSocket connections accepted since process start.",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections_active",
			Help:      "Currently open WebSocket connections.",
		}),
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_received_total",
			Help:      "Inbound intents received, by event type.",
		}, []string{"event"}),
		EventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "event_errors_total",
			Help:      "Inbound intents that failed, by event type.",
		}, []string{"event"}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "session-updated fan-outs performed.",
		}),
	}
}
