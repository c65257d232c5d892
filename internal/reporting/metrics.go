package reporting

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"smokectl/internal/harness"
)

const metricsNamespace = "smokectl"

// Metrics holds the gauges exported for one run. Every run gets a fresh
// registry so the textfile only ever describes the latest pass.
type Metrics struct {
	registry *prometheus.Registry

	componentUp  *prometheus.GaugeVec
	attempts     *prometheus.GaugeVec
	duration     *prometheus.GaugeVec
	runSuccess   prometheus.Gauge
	runTimestamp prometheus.Gauge
}

// NewMetrics creates and registers the smokectl gauges.
func NewMetrics() *Metrics {
	labels := []string{"component", "namespace"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		componentUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "component_up",
			Help:      "Whether the component passed its last health check (1) or not (0).",
		}, labels),
		attempts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "component_check_attempts",
			Help:      "Number of probe attempts made for the component.",
		}, labels),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "component_check_duration_seconds",
			Help:      "Time spent checking the component.",
		}, labels),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_success",
			Help:      "Whether every selected component passed (1) or not (0).",
		}),
		runTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
	m.registry.MustRegister(m.componentUp, m.attempts, m.duration, m.runSuccess, m.runTimestamp)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record sets the gauges from report.
func (m *Metrics) Record(namespace string, report harness.RunReport, finished time.Time) {
	for _, res := range report.Results {
		m.componentUp.WithLabelValues(res.Component, namespace).Set(boolGauge(res.Passed))
		m.attempts.WithLabelValues(res.Component, namespace).Set(float64(res.Attempts))
		m.duration.WithLabelValues(res.Component, namespace).Set(res.Duration.Seconds())
	}
	m.runSuccess.Set(boolGauge(report.AllPassed))
	m.runTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// WriteMetricsFile records report and writes it to path in one step.
func WriteMetricsFile(path, namespace string, report harness.RunReport, finished time.Time) error {
	m := NewMetrics()
	m.Record(namespace, report, finished)
	return m.WriteTextfile(path)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
