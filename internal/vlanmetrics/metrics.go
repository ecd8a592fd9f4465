// Package vlanmetrics instruments the topology manager with Prometheus
// collectors exposed over an HTTP handler, rather than the OpenTelemetry
// SDK: this daemon has no OTLP collector to export to, only a pull-model
// scrape endpoint, so direct Prometheus client_golang collectors are the
// more direct fit.
package vlanmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dynvland collectors. Only DriverCallDuration and
// DriverCallErrors are updated, by the instrumented driver; the gauges and
// the NEWLINK/DELLINK counters are registered and exported, but the
// topology manager and the watcher do not update them.
type Metrics struct {
	BridgesActive     prometheus.Gauge
	TrunkChildsActive prometheus.Gauge
	RegistrySize      prometheus.Gauge

	NewLinkProcessed prometheus.Counter
	DelLinkProcessed prometheus.Counter
	DelLinkRaceSkips prometheus.Counter

	DriverCallDuration *prometheus.HistogramVec
	DriverCallErrors   *prometheus.CounterVec
}

// New registers every collector against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BridgesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynvland",
			Name:      "bridges_active",
			Help:      "Number of bridges currently owned by the registry.",
		}),
		TrunkChildsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynvland",
			Name:      "trunk_children_active",
			Help:      "Number of 802.1Q trunk-child interfaces currently owned by the registry.",
		}),
		RegistrySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynvland",
			Name:      "registry_entries",
			Help:      "Number of live entries in the shared-resource registry.",
		}),
		NewLinkProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dynvland",
			Name:      "newlink_processed_total",
			Help:      "Total NEWLINK events processed by the topology manager.",
		}),
		DelLinkProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dynvland",
			Name:      "dellink_processed_total",
			Help:      "Total DELLINK events processed by the topology manager.",
		}),
		DelLinkRaceSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dynvland",
			Name:      "dellink_race_skips_total",
			Help:      "Total DELLINK events suppressed because the interface still resolved.",
		}),
		DriverCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dynvland",
			Name:      "driver_call_duration_seconds",
			Help:      "Duration of OS interface driver calls, by operation.",
		}, []string{"operation"}),
		DriverCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dynvland",
			Name:      "driver_call_errors_total",
			Help:      "Total OS interface driver call failures, by operation.",
		}, []string{"operation"}),
	}
}
