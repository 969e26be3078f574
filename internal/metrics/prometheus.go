package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the streaming ASR service.
type Metrics struct {
	// Capture metrics
	ChunksCaptured prometheus.Counter
	ChunksDropped  prometheus.Gauge
	QueueSize      prometheus.Gauge

	// Buffer metrics
	BufferedSamples prometheus.Gauge

	// Scheduler metrics
	Ticks            prometheus.Counter
	EmptyTicks       prometheus.Counter
	BatchesDiscarded prometheus.Counter
	BatchDuration    prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Result metrics
	ResultsDelivered prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture metrics
		ChunksCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_chunks_captured_total",
			Help: "Total number of audio chunks pulled from the capture queue",
		}),
		ChunksDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr_chunks_dropped_total",
			Help: "Number of chunks evicted from the capture queue on overflow",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr_capture_queue_size",
			Help: "Current number of chunks in the capture queue",
		}),

		// Buffer metrics
		BufferedSamples: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr_buffered_samples",
			Help: "Current number of samples awaiting the next drain",
		}),

		// Scheduler metrics
		Ticks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_scheduler_ticks_total",
			Help: "Total number of scheduler ticks",
		}),
		EmptyTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_scheduler_empty_ticks_total",
			Help: "Total number of ticks that found no buffered audio",
		}),
		BatchesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_batches_discarded_total",
			Help: "Total number of drained batches discarded below the minimum duration",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_batch_duration_seconds",
			Help:    "Audio duration of drained batches sent for transcription",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~25s
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Result metrics
		ResultsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_results_delivered_total",
			Help: "Total number of transcription results delivered to the sink",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChunkCaptured increments the captured chunks counter.
func (m *Metrics) RecordChunkCaptured() {
	m.ChunksCaptured.Inc()
}

// SetQueueStats updates the capture queue gauges.
func (m *Metrics) SetQueueStats(size int, dropped uint64) {
	m.QueueSize.Set(float64(size))
	m.ChunksDropped.Set(float64(dropped))
}

// SetBufferedSamples sets the buffered samples gauge.
func (m *Metrics) SetBufferedSamples(count int) {
	m.BufferedSamples.Set(float64(count))
}

// RecordTick records a scheduler tick, empty or not.
func (m *Metrics) RecordTick(empty bool) {
	m.Ticks.Inc()
	if empty {
		m.EmptyTicks.Inc()
	}
}

// RecordBatchDiscarded increments the short-batch discard counter.
func (m *Metrics) RecordBatchDiscarded() {
	m.BatchesDiscarded.Inc()
}

// RecordBatch records the audio duration of a batch sent for transcription.
func (m *Metrics) RecordBatch(durationSeconds float64) {
	m.BatchDuration.Observe(durationSeconds)
}

// RecordTranscriptionRequest increments the transcription requests counter.
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription.
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription.
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordResultDelivered increments the delivered results counter.
func (m *Metrics) RecordResultDelivered() {
	m.ResultsDelivered.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
