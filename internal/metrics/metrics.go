package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus counters and histograms for encode runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	framesDecoded prometheus.Counter
	tilesEncoded  prometheus.Counter
	payloadBytes  *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// New creates and registers Prometheus metrics for the encoder.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	framesDecoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vcxenc_frames_decoded_total",
		Help: "Total number of luma frames read from the decoder",
	})
	tilesEncoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vcxenc_tiles_encoded_total",
		Help: "Total number of IC0T tiles encoded",
	})
	payloadBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vcxenc_payload_bytes_total",
		Help: "Total payload bytes written to packs by payload kind",
	}, []string{"kind"})
	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vcxenc_runs_total",
		Help: "Total number of encode runs by outcome",
	}, []string{"status"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vcxenc_stage_duration_seconds",
		Help:    "Wall-clock duration of each encode stage",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"stage"})

	registry.MustRegister(
		framesDecoded,
		tilesEncoded,
		payloadBytes,
		runsTotal,
		stageDuration,
	)

	return &Metrics{
		registry:      registry,
		framesDecoded: framesDecoded,
		tilesEncoded:  tilesEncoded,
		payloadBytes:  payloadBytes,
		runsTotal:     runsTotal,
		stageDuration: stageDuration,
	}
}

// AddFrames adds decoded frames.
func (m *Metrics) AddFrames(n int) {
	if m == nil {
		return
	}
	m.framesDecoded.Add(float64(n))
}

// AddTiles adds encoded tiles.
func (m *Metrics) AddTiles(n int) {
	if m == nil {
		return
	}
	m.tilesEncoded.Add(float64(n))
}

// AddPayloadBytes adds bytes written for a payload kind.
func (m *Metrics) AddPayloadBytes(kind string, n int) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues(kind).Add(float64(n))
}

// IncRuns counts a finished run with the given status.
func (m *Metrics) IncRuns(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current values in the Prometheus text format,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
