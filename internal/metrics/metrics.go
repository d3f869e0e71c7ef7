package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the cortex server
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage metrics
	AudioUploads     *prometheus.CounterVec
	AudioUploadBytes prometheus.Histogram
	SignedURLs       prometheus.Counter

	// Voice note metrics
	NotesCreated prometheus.Counter
	NotesDeleted prometheus.Counter

	// Transcription metrics
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
}

// New creates all metrics on a private registry so tests and multiple
// servers in one process never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cortex_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		AudioUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_audio_uploads_total",
			Help: "Audio blob uploads by result",
		}, []string{"result"}),
		AudioUploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortex_audio_upload_bytes",
			Help:    "Declared size of uploaded audio blobs",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 12), // 16KB to ~32MB
		}),
		SignedURLs: factory.NewCounter(prometheus.CounterOpts{
			Name: "cortex_signed_urls_total",
			Help: "Signed playback URLs issued",
		}),

		NotesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cortex_voice_notes_created_total",
			Help: "Voice notes created",
		}),
		NotesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cortex_voice_notes_deleted_total",
			Help: "Voice notes deleted",
		}),

		TranscriptionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_transcription_requests_total",
			Help: "Transcription requests by result",
		}, []string{"result"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortex_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordUpload records an upload outcome; size is ignored for failures.
func (m *Metrics) RecordUpload(ok bool, size int64) {
	if !ok {
		m.AudioUploads.WithLabelValues("failure").Inc()
		return
	}
	m.AudioUploads.WithLabelValues("success").Inc()
	if size > 0 {
		m.AudioUploadBytes.Observe(float64(size))
	}
}

// RecordTranscription records a transcription outcome and its duration.
func (m *Metrics) RecordTranscription(ok bool, durationSeconds float64) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.TranscriptionRequests.WithLabelValues(result).Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}
