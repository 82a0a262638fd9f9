package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trafficmonitor/internal/model"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	// Sampling loop counters
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesSkipped   atomic.Uint64
	BadFrames       atomic.Uint64

	// Failure counters
	DetectionFailures atomic.Uint64
	PersistFailures   atomic.Uint64
	SinkErrors        atomic.Uint64

	// Broadcast counters
	EventsPublished atomic.Uint64
	EventsDropped   atomic.Uint64

	Subscribers atomic.Int64

	vehicles         *prometheus.CounterVec
	detectionLatency prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		vehicles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traffic_vehicles_counted_total",
				Help: "Vehicles counted in processed frames, by category",
			},
			[]string{"category"},
		),
		detectionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "traffic_detection_duration_seconds",
			Help:    "Time spent running the detector on one frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name  string
		help  string
		value func() float64
	}{
		{"traffic_frames_read_total", "Total frames read from the video source", func() float64 { return float64(m.FramesRead.Load()) }},
		{"traffic_frames_processed_total", "Total sampled frames run through detection", func() float64 { return float64(m.FramesProcessed.Load()) }},
		{"traffic_frames_skipped_total", "Total frames discarded by the sampling stride", func() float64 { return float64(m.FramesSkipped.Load()) }},
		{"traffic_bad_frames_total", "Total frames the source could not decode", func() float64 { return float64(m.BadFrames.Load()) }},
		{"traffic_detection_failures_total", "Total frames whose detection degraded to an empty result", func() float64 { return float64(m.DetectionFailures.Load()) }},
		{"traffic_persist_failures_total", "Total count records that could not be stored", func() float64 { return float64(m.PersistFailures.Load()) }},
		{"traffic_events_published_total", "Total count events accepted by the broadcast hub", func() float64 { return float64(m.EventsPublished.Load()) }},
		{"traffic_events_dropped_total", "Total count events dropped by the hub or slow subscribers", func() float64 { return float64(m.EventsDropped.Load()) }},
		{"traffic_sink_errors_total", "Total errors forwarding events to external sinks", func() float64 { return float64(m.SinkErrors.Load()) }},
		{"traffic_live_subscribers", "Currently registered live subscribers", func() float64 { return float64(m.Subscribers.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.value,
		))
	}

	m.registry.MustRegister(m.vehicles, m.detectionLatency)
}

// ObserveCounts adds a frame's per-category counts to the vehicle counter.
func (m *Metrics) ObserveCounts(c model.Counts) {
	for _, cat := range model.Categories {
		if n := c.Get(cat); n > 0 {
			m.vehicles.WithLabelValues(string(cat)).Add(float64(n))
		}
	}
}

// ObserveDetection records how long one detector call took.
func (m *Metrics) ObserveDetection(d time.Duration) {
	m.detectionLatency.Observe(d.Seconds())
}

// VehicleCounter exposes the per-category counter for inspection.
func (m *Metrics) VehicleCounter() *prometheus.CounterVec {
	return m.vehicles
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
