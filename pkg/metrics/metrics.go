// Package metrics records extraction counters in a prometheus registry and
// exports them in the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/user/deepframe/pkg/extract"
)

// Source statuses used as the status label of deepframe_sources_total.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// Recorder holds one registry per run.
type Recorder struct {
	registry *prometheus.Registry

	framesDecoded  *prometheus.CounterVec
	framesMatched  *prometheus.CounterVec
	seeks          *prometheus.CounterVec
	slotsMissing   *prometheus.CounterVec
	skippedFrames  *prometheus.CounterVec
	sources        *prometheus.CounterVec
	extractionTime *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		framesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepframe_frames_decoded_total",
			Help: "Frames produced by the decoder",
		}, []string{"source"}),
		framesMatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepframe_frames_matched_total",
			Help: "Decoded frames copied into at least one slot",
		}, []string{"source"}),
		seeks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepframe_seeks_total",
			Help: "Container seeks issued",
		}, []string{"source"}),
		slotsMissing: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepframe_slots_missing_total",
			Help: "Requested slots left unfilled",
		}, []string{"source"}),
		skippedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepframe_frames_skipped_total",
			Help: "Decoded frames dropped for missing timestamps or wrong geometry",
		}, []string{"source"}),
		sources: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deepframe_sources_total",
			Help: "Processed sources by outcome",
		}, []string{"status"}),
		extractionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deepframe_extraction_seconds",
			Help:    "Wall time of one extraction call",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}, []string{"source"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records the statistics of one finished extraction.
func (r *Recorder) Observe(source string, result *extract.Result) {
	if result == nil {
		return
	}
	stats := result.Stats
	r.framesDecoded.WithLabelValues(source).Add(float64(stats.FramesDecoded))
	r.framesMatched.WithLabelValues(source).Add(float64(stats.FramesMatched))
	r.seeks.WithLabelValues(source).Add(float64(stats.Seeks))
	r.slotsMissing.WithLabelValues(source).Add(float64(len(result.Missing)))
	r.skippedFrames.WithLabelValues(source).Add(float64(stats.SkippedFrames))
	r.extractionTime.WithLabelValues(source).Observe(stats.Duration.Seconds())

	if result.Complete() {
		r.sources.WithLabelValues(StatusComplete).Inc()
	} else {
		r.sources.WithLabelValues(StatusPartial).Inc()
	}
}

// Failed records a source that produced no result.
func (r *Recorder) Failed(source string) {
	r.sources.WithLabelValues(StatusFailed).Inc()
}

// WriteFile writes every metric to path in the textfile collector format.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
