// Package metrics records run counters and timings on a private Prometheus
// registry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the run's metrics.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	profilesDiscovered *prometheus.CounterVec
	discoveryStops     *prometheus.CounterVec
	profilesScraped    *prometheus.CounterVec
	profileDuration    prometheus.Histogram
	chunkDuration      prometheus.Histogram
	chunkSize          prometheus.Histogram
	fragments          *prometheus.CounterVec
	timelinePages      prometheus.Counter
	recordsWritten     *prometheus.CounterVec
	residentMemory     prometheus.Gauge
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(r *Recorder) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithHistogramBuckets overrides the duration buckets, in seconds.
func WithHistogramBuckets(b []float64) Option {
	return func(r *Recorder) {
		if len(b) > 0 {
			r.buckets = b
		}
	}
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "recruits",
		buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.profilesDiscovered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "profiles_total",
		Help:      "Distinct profile locators discovered per season",
	}, []string{"season"})
	r.discoveryStops = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "stops_total",
		Help:      "Load-more loop terminations by reason",
	}, []string{"reason"})
	r.profilesScraped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "profile",
		Name:      "scraped_total",
		Help:      "Profile tasks by outcome",
	}, []string{"outcome"})
	r.profileDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "profile",
		Name:      "duration_seconds",
		Help:      "Time spent fetching and parsing one profile",
		Buckets:   r.buckets,
	})
	r.chunkDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "batch",
		Name:      "chunk_duration_seconds",
		Help:      "Wall time of one chunk including session setup",
		Buckets:   r.buckets,
	})
	r.chunkSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "batch",
		Name:      "chunk_size",
		Help:      "Tasks per chunk",
		Buckets:   prometheus.LinearBuckets(1, 1, 16),
	})
	r.fragments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "timeline",
		Name:      "fragments_total",
		Help:      "Timeline fragments by reconciliation outcome",
	}, []string{"outcome"})
	r.timelinePages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "timeline",
		Name:      "pages_total",
		Help:      "Full-history timeline pages visited",
	})
	r.recordsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "sink",
		Name:      "records_total",
		Help:      "Records written by format",
	}, []string{"format"})
	r.residentMemory = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "resident_memory_bytes",
		Help:      "Process RSS sampled after each chunk",
	})
	return r
}

// Registry returns the registry metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Discovered records a finished discovery for season.
func (r *Recorder) Discovered(season, profiles int, stopReason string) {
	if r == nil {
		return
	}
	r.profilesDiscovered.WithLabelValues(strconv.Itoa(season)).Add(float64(profiles))
	r.discoveryStops.WithLabelValues(stopReason).Inc()
}

// TaskDone records one profile task.
func (r *Recorder) TaskDone(ok bool, d time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	r.profilesScraped.WithLabelValues(outcome).Inc()
	r.profileDuration.Observe(d.Seconds())
}

// ChunkDone records one drained chunk.
func (r *Recorder) ChunkDone(size int, d time.Duration) {
	if r == nil {
		return
	}
	r.chunkSize.Observe(float64(size))
	r.chunkDuration.Observe(d.Seconds())
}

// Fragment records the reconciliation outcome of one timeline fragment.
func (r *Recorder) Fragment(outcome string) {
	if r == nil {
		return
	}
	r.fragments.WithLabelValues(outcome).Inc()
}

// TimelinePage records one visited full-history page.
func (r *Recorder) TimelinePage() {
	if r == nil {
		return
	}
	r.timelinePages.Inc()
}

// RecordsWritten records n records written in format.
func (r *Recorder) RecordsWritten(format string, n int) {
	if r == nil {
		return
	}
	r.recordsWritten.WithLabelValues(format).Add(float64(n))
}

// SetResidentMemory records the latest RSS sample.
func (r *Recorder) SetResidentMemory(bytes uint64) {
	if r == nil {
		return
	}
	r.residentMemory.Set(float64(bytes))
}

// WriteTextfile writes every metric in the text exposition format to path,
// for pickup by a node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
