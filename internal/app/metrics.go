package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "stockpile"

// Metrics holds the counters and gauges of one session. Each session gets its
// own registry so tests and repeated runs never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	Rejections    prometheus.Counter
	Updates       prometheus.Gauge
	Reinstall     prometheus.Gauge
	SelectedBytes prometheus.Gauge
	Operations    *prometheus.CounterVec
	SweepFailures prometheus.Counter
}

// NewMetrics creates and registers the session metrics
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "selection_rejections_total",
			Help:      "Selection changes vetoed by validation.",
		}),
		Updates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "updates_available",
			Help:      "Installed components whose recorded size differs from the manifest.",
		}),
		Reinstall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "reinstall_needed",
			Help:      "Installed components with a missing or unreadable metadata record.",
		}),
		SelectedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "selected_bytes",
			Help:      "Total size of the current selection.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Operations attempted, by mode and result.",
		}, []string{"mode", "result"}),
		SweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweep_failures_total",
			Help:      "Entries an uninstall sweep could not remove.",
		}),
	}
	reg.MustRegister(m.Rejections, m.Updates, m.Reinstall, m.SelectedBytes, m.Operations, m.SweepFailures)
	return m
}

// WriteFile writes the registry in the node_exporter textfile format
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Operation results
const (
	resultOK       = "ok"
	resultRefused  = "refused"
	resultDeclined = "declined"
	resultFailed   = "failed"
	resultEmpty    = "empty"
)

func (m *Metrics) operation(mode Mode, result string) {
	m.Operations.WithLabelValues(mode.String(), result).Inc()
}
