package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/takuyakubo/voice-modals/internal/audio"
	"github.com/takuyakubo/voice-modals/internal/metrics"
)

// AudioSource is the capture side of the pipeline as the engine sees it.
// capture.Source implements it; tests substitute a fake.
type AudioSource interface {
	Start() error
	Stop()
	NextChunk(timeout time.Duration) (*audio.Chunk, bool)
}

// Engine wires the audio source, the transcription buffer, and the
// processing scheduler into one unit with idempotent Start/Stop.
type Engine struct {
	source    AudioSource
	queue     *audio.ChunkQueue // may be nil; used for stats only
	buffer    *audio.Buffer
	scheduler *Scheduler
	logger    *slog.Logger
	metrics   *metrics.Metrics // may be nil

	pullTimeout time.Duration

	pumpCancel chan struct{}
	pumpDone   chan struct{}
	started    bool
	startedAt  time.Time

	// Incremented by the pump while Stop may hold the engine lock, so it
	// must not take that lock itself.
	chunksPumped atomic.Uint64

	mu sync.Mutex
}

// EngineStats represents pipeline-wide statistics.
type EngineStats struct {
	Running      bool              `json:"running"`
	Uptime       string            `json:"uptime,omitempty"`
	ChunksPumped uint64            `json:"chunks_pumped"`
	QueueSize    int               `json:"queue_size"`
	QueueDropped uint64            `json:"queue_dropped"`
	Buffer       audio.BufferStats `json:"buffer"`
	Scheduler    SchedulerStats    `json:"scheduler"`
}

// NewEngine creates an engine around an already-constructed scheduler. The
// queue is optional and only consulted for statistics; the source is the
// single reader of it.
func NewEngine(source AudioSource, queue *audio.ChunkQueue, buffer *audio.Buffer, scheduler *Scheduler, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		source:      source,
		queue:       queue,
		buffer:      buffer,
		scheduler:   scheduler,
		logger:      logger,
		metrics:     m,
		pullTimeout: 250 * time.Millisecond,
	}
}

// Start brings the pipeline up: buffer reset, audio source, pump, then
// scheduler. Calling Start while running is a no-op. If the source fails to
// start, nothing else is started and the error is returned.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	// A restart must not deliver audio captured before the previous stop.
	e.buffer.Reset()

	if err := e.source.Start(); err != nil {
		return fmt.Errorf("failed to start audio source: %w", err)
	}

	e.pumpCancel = make(chan struct{})
	e.pumpDone = make(chan struct{})
	go e.pump(e.pumpCancel, e.pumpDone)

	e.scheduler.Start()

	e.started = true
	e.startedAt = time.Now()

	e.logger.Info("Streaming engine started")
	return nil
}

// Stop tears the pipeline down in reverse order: scheduler, pump, source.
// Buffered audio that was never drained is discarded. Calling Stop before
// Start, or twice, is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}

	e.scheduler.Stop()

	close(e.pumpCancel)
	<-e.pumpDone

	e.source.Stop()

	e.started = false

	e.logger.Info("Streaming engine stopped",
		slog.Uint64("chunks_pumped", e.chunksPumped.Load()),
		slog.Int("samples_discarded", e.buffer.SampleCount()),
	)
}

// IsRunning reports whether the pipeline is up.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// pump moves chunks from the source into the buffer until cancelled. The
// pull timeout keeps the loop responsive to shutdown while idle.
func (e *Engine) pump(cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-cancel:
			return
		default:
		}

		chunk, ok := e.source.NextChunk(e.pullTimeout)
		if !ok {
			continue
		}

		e.buffer.Add(chunk)
		e.chunksPumped.Add(1)

		if e.metrics != nil {
			e.metrics.RecordChunkCaptured()
			e.metrics.SetBufferedSamples(e.buffer.SampleCount())
			if e.queue != nil {
				e.metrics.SetQueueStats(e.queue.Len(), e.queue.Dropped())
			}
		}
	}
}

// GetStats returns current pipeline statistics.
func (e *Engine) GetStats() EngineStats {
	e.mu.Lock()
	started := e.started
	startedAt := e.startedAt
	e.mu.Unlock()

	stats := EngineStats{
		Running:      started,
		ChunksPumped: e.chunksPumped.Load(),
		Buffer:       e.buffer.GetStats(),
		Scheduler:    e.scheduler.GetStats(),
	}

	if started {
		stats.Uptime = time.Since(startedAt).Round(time.Second).String()
	}

	if e.queue != nil {
		stats.QueueSize = e.queue.Len()
		stats.QueueDropped = e.queue.Dropped()
	}

	return stats
}
