// Package metrics exports conversion counters in the Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jacoelho/hexbin"
)

var _ hexbin.Recorder = (*Metrics)(nil)

// Metrics holds the conversion collectors on a private registry.
type Metrics struct {
	InputBytes  prometheus.Counter
	Digits      prometheus.Counter
	OutputBytes prometheus.Counter
	RingWaits   *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		InputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "hexbin_input_bytes_total",
			Help: "Bytes of hex text read from the input",
		}),
		Digits: factory.NewCounter(prometheus.CounterOpts{
			Name: "hexbin_hex_digits_total",
			Help: "Significant hex digits decoded",
		}),
		OutputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "hexbin_output_bytes_total",
			Help: "Decoded bytes written to the output",
		}),
		RingWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hexbin_ring_waits_total",
				Help: "Times a stage blocked on a full or empty ring",
			},
			[]string{"ring", "side"},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hexbin_runs_total",
				Help: "Conversions by outcome",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hexbin_run_duration_seconds",
			Help:    "Wall time of a conversion",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun implements hexbin.Recorder.
func (m *Metrics) ObserveRun(res hexbin.Result, err error) {
	m.InputBytes.Add(float64(res.BytesRead))
	m.Digits.Add(float64(res.Digits))
	m.OutputBytes.Add(float64(res.BytesWritten))

	m.observeRing("input", res.Input)
	m.observeRing("output", res.Output)

	status := "success"
	if err != nil {
		status = "failure"
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(res.Duration.Seconds())
}

func (m *Metrics) observeRing(ring string, s hexbin.RingStats) {
	m.RingWaits.WithLabelValues(ring, "producer").Add(float64(s.ProducerWaits))
	m.RingWaits.WithLabelValues(ring, "consumer").Add(float64(s.ConsumerWaits))
}

// WriteFile writes the current values to path in the text exposition
// format, suitable for the node_exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
