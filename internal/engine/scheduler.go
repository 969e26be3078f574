package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/takuyakubo/voice-modals/internal/audio"
	"github.com/takuyakubo/voice-modals/internal/metrics"
	"github.com/takuyakubo/voice-modals/internal/transcription"
)

// ResultSink receives transcription results. The scheduler calls it
// synchronously from its own goroutine, one result at a time, in the order
// the audio was captured. A slow sink delays subsequent ticks.
type ResultSink func(*transcription.Result)

// SchedulerState represents the scheduler lifecycle state.
type SchedulerState int

const (
	StateIdle SchedulerState = iota
	StateRunning
	StateStopping
)

// String returns the state name.
func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// SchedulerConfig contains processing scheduler parameters.
type SchedulerConfig struct {
	Interval         time.Duration // time between processing ticks
	MinAudioDuration time.Duration // batches shorter than this are discarded
	SampleRate       int
	Language         string        // language hint passed to the transcriber
	JoinTimeout      time.Duration // bound on waiting for the loop to exit
}

// Scheduler periodically drains the transcription buffer and sends each
// batch through the transcriber. Transcription failures are logged and
// counted; the loop continues with the next tick.
type Scheduler struct {
	config      SchedulerConfig
	buffer      *audio.Buffer
	transcriber transcription.Transcriber
	sink        ResultSink
	logger      *slog.Logger
	metrics     *metrics.Metrics // may be nil

	state  SchedulerState
	cancel context.CancelFunc
	done   chan struct{}

	// Statistics
	ticks            uint64
	emptyTicks       uint64
	batchesDiscarded uint64
	batchesSent      uint64
	failures         uint64
	resultsDelivered uint64

	mu sync.Mutex
}

// SchedulerStats represents scheduler statistics.
type SchedulerStats struct {
	State            string `json:"state"`
	Ticks            uint64 `json:"ticks"`
	EmptyTicks       uint64 `json:"empty_ticks"`
	BatchesDiscarded uint64 `json:"batches_discarded"`
	BatchesSent      uint64 `json:"batches_sent"`
	Failures         uint64 `json:"failures"`
	ResultsDelivered uint64 `json:"results_delivered"`
}

// NewScheduler creates a scheduler draining buffer into transcriber. The
// sink is fixed at construction; results are never produced before Start
// or after Stop returns.
func NewScheduler(config SchedulerConfig, buffer *audio.Buffer, transcriber transcription.Transcriber, sink ResultSink, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 2 * time.Second
	}
	if config.MinAudioDuration <= 0 {
		config.MinAudioDuration = 100 * time.Millisecond
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.JoinTimeout <= 0 {
		config.JoinTimeout = 5 * time.Second
	}

	return &Scheduler{
		config:      config,
		buffer:      buffer,
		transcriber: transcriber,
		sink:        sink,
		logger:      logger,
		metrics:     m,
		state:       StateIdle,
	}
}

// Start launches the processing loop. Calling Start while running is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning

	go s.run(ctx, s.done)

	s.logger.Info("Processing scheduler started",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("min_audio_duration", s.config.MinAudioDuration),
	)
}

// Stop cancels the loop and waits for it to exit, bounded by JoinTimeout.
// In-flight transcription is abandoned via context cancellation; its result
// is not delivered. Calling Stop while idle is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	done := s.done
	s.cancel()
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(s.config.JoinTimeout):
		s.logger.Warn("Processing loop did not exit within join timeout",
			slog.Duration("timeout", s.config.JoinTimeout),
		)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()

	s.logger.Info("Processing scheduler stopped")
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// run is the processing loop. The timer is reset after each tick completes,
// so a slow transcription delays the next tick instead of stacking ticks.
func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.config.Interval)
		}
	}
}

// tick drains the buffer and processes one batch, if any.
func (s *Scheduler) tick(ctx context.Context) {
	samples := s.buffer.Drain()

	s.mu.Lock()
	s.ticks++
	if samples == nil {
		s.emptyTicks++
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordTick(samples == nil)
		s.metrics.SetBufferedSamples(0)
	}

	if samples == nil {
		return
	}

	duration := time.Duration(float64(len(samples)) / float64(s.config.SampleRate) * float64(time.Second))
	if duration < s.config.MinAudioDuration {
		s.mu.Lock()
		s.batchesDiscarded++
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordBatchDiscarded()
		}

		s.logger.Debug("Discarding batch below minimum duration",
			slog.Duration("duration", duration),
			slog.Duration("minimum", s.config.MinAudioDuration),
		)
		return
	}

	s.mu.Lock()
	s.batchesSent++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordBatch(duration.Seconds())
		s.metrics.RecordTranscriptionRequest()
	}

	startTime := time.Now()
	result, err := s.transcriber.Transcribe(ctx, transcription.Request{
		Samples:    samples,
		SampleRate: s.config.SampleRate,
		Language:   s.config.Language,
	})
	elapsed := time.Since(startTime)

	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordTranscriptionFailure(elapsed.Seconds())
		}

		// Cancellation during shutdown is expected, not a failure worth
		// alarming about.
		if ctx.Err() != nil {
			return
		}

		s.logger.Error("Transcription failed",
			slog.Duration("batch_duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
	}

	if result == nil || result.Text == "" {
		return
	}

	s.sink(result)

	s.mu.Lock()
	s.resultsDelivered++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordResultDelivered()
	}

	s.logger.Debug("Transcription delivered",
		slog.Duration("batch_duration", duration),
		slog.Duration("inference_time", elapsed),
		slog.Int("text_length", len(result.Text)),
	)
}

// GetStats returns current scheduler statistics.
func (s *Scheduler) GetStats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStats{
		State:            s.state.String(),
		Ticks:            s.ticks,
		EmptyTicks:       s.emptyTicks,
		BatchesDiscarded: s.batchesDiscarded,
		BatchesSent:      s.batchesSent,
		Failures:         s.failures,
		ResultsDelivered: s.resultsDelivered,
	}
}
