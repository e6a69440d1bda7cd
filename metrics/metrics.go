// Package metrics exposes Prometheus counters and gauges for the streaming
// data path. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teranos/rfbridge/errors"
)

const namespace = "rfbridge"

// Metrics contains every data-path metric, labelled by component instance.
type Metrics struct {
	// Data path
	SamplesReceived *prometheus.CounterVec
	SamplesSent     *prometheus.CounterVec
	PacketsPushed   *prometheus.CounterVec
	Overflows       *prometheus.CounterVec
	Timeouts        *prometheus.CounterVec
	Reacquisitions  *prometheus.CounterVec
	DroppedSamples  *prometheus.CounterVec

	// Control path
	ConfigRejected *prometheus.CounterVec
	FFTSize        *prometheus.GaugeVec
	Streaming      *prometheus.GaugeVec
	Connections    *prometheus.GaugeVec

	// Host
	MemoryAvailable prometheus.Gauge
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SamplesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rx",
				Name:      "samples_total",
				Help:      "Samples received from hardware",
			},
			[]string{"instance"},
		),

		SamplesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "samples_total",
				Help:      "Samples accepted by hardware",
			},
			[]string{"instance"},
		),

		PacketsPushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rx",
				Name:      "packets_pushed_total",
				Help:      "Batches forwarded to the egress port",
			},
			[]string{"instance"},
		),

		Overflows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rx",
				Name:      "overflows_total",
				Help:      "Receives that reported an overflow",
			},
			[]string{"instance"},
		),

		Timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rx",
				Name:      "timeouts_total",
				Help:      "Receives that timed out with no data",
			},
			[]string{"instance"},
		),

		Reacquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "reacquisitions_total",
				Help:      "Stream handles released and reopened after a failure",
			},
			[]string{"instance", "direction"},
		),

		DroppedSamples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "dropped_samples_total",
				Help:      "Samples abandoned after repeated send failures",
			},
			[]string{"instance"},
		),

		ConfigRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "rejected_total",
				Help:      "Configuration changes refused",
			},
			[]string{"instance", "property"},
		),

		FFTSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "fft_size",
				Help:      "Active transform size",
			},
			[]string{"instance"},
		),

		Streaming: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "rx",
				Name:      "streaming",
				Help:      "Continuous streaming state (0=stopped, 1=streaming)",
			},
			[]string{"instance"},
		),

		Connections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "connections",
				Help:      "Open connections by side (incoming, outgoing)",
			},
			[]string{"instance", "side"},
		),

		MemoryAvailable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "host",
				Name:      "memory_available_bytes",
				Help:      "Host memory available when last checked",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SamplesReceived, m.SamplesSent, m.PacketsPushed, m.Overflows, m.Timeouts,
		m.Reacquisitions, m.DroppedSamples, m.ConfigRejected, m.FFTSize, m.Streaming,
		m.Connections, m.MemoryAvailable,
	}
}

// Register adds every metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return errors.Wrap(err, "failed to register metric")
		}
	}
	return nil
}

// NewRegistry returns a registry holding fresh metrics plus the Go runtime and
// process collectors.
func NewRegistry() (*prometheus.Registry, *Metrics, error) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		return nil, nil, err
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, m, nil
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RecordReceived counts samples received from hardware.
func (m *Metrics) RecordReceived(instance string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SamplesReceived.WithLabelValues(instance).Add(float64(n))
}

// RecordSent counts samples accepted by hardware.
func (m *Metrics) RecordSent(instance string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SamplesSent.WithLabelValues(instance).Add(float64(n))
}

// RecordPush counts one batch forwarded downstream.
func (m *Metrics) RecordPush(instance string) {
	if m == nil {
		return
	}
	m.PacketsPushed.WithLabelValues(instance).Inc()
}

// RecordOverflow counts an overflow indication.
func (m *Metrics) RecordOverflow(instance string) {
	if m == nil {
		return
	}
	m.Overflows.WithLabelValues(instance).Inc()
}

// RecordTimeout counts a receive timeout.
func (m *Metrics) RecordTimeout(instance string) {
	if m == nil {
		return
	}
	m.Timeouts.WithLabelValues(instance).Inc()
}

// RecordReacquire counts one release and reopen of a stream handle.
func (m *Metrics) RecordReacquire(instance, direction string) {
	if m == nil {
		return
	}
	m.Reacquisitions.WithLabelValues(instance, direction).Inc()
}

// RecordDropped counts samples abandoned by the TX path.
func (m *Metrics) RecordDropped(instance string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedSamples.WithLabelValues(instance).Add(float64(n))
}

// RecordRejected counts a refused configuration change.
func (m *Metrics) RecordRejected(instance, property string) {
	if m == nil {
		return
	}
	m.ConfigRejected.WithLabelValues(instance, property).Inc()
}

// RecordFFTSize updates the active transform size.
func (m *Metrics) RecordFFTSize(instance string, size uint32) {
	if m == nil {
		return
	}
	m.FFTSize.WithLabelValues(instance).Set(float64(size))
}

// RecordStreaming updates the continuous streaming state.
func (m *Metrics) RecordStreaming(instance string, streaming bool) {
	if m == nil {
		return
	}
	value := 0.0
	if streaming {
		value = 1.0
	}
	m.Streaming.WithLabelValues(instance).Set(value)
}

// AddConnections moves the connection gauge for one side by delta.
func (m *Metrics) AddConnections(instance, side string, delta int) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(instance, side).Add(float64(delta))
}
