package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/takuyakubo/voice-modals/internal/audio"
)

// Config contains audio capture parameters.
type Config struct {
	SampleRate    int           // 16000 Hz throughout the pipeline
	Channels      int           // 1 (mono)
	ChunkDuration time.Duration // duration of each capture buffer
	DeviceIndex   int           // -1 selects the default input device
}

// Source captures audio from an input device and feeds the chunk queue.
// Start and Stop are idempotent and safe to call from any thread.
type Source struct {
	config Config
	queue  *audio.ChunkQueue
	logger *slog.Logger

	stream  *portaudio.Stream
	started bool

	mu sync.Mutex
}

// Initialize starts the PortAudio runtime. Must be called once before any
// Source is started, paired with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize audio subsystem: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio runtime.
func Terminate() {
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("Error terminating audio subsystem", slog.String("error", err.Error()))
	}
}

// NewSource creates an audio source pushing into the given queue.
func NewSource(config Config, queue *audio.ChunkQueue, logger *slog.Logger) *Source {
	return &Source{
		config: config,
		queue:  queue,
		logger: logger,
	}
}

// Start opens and starts the input stream. A second call while started is a
// no-op. Failure to open the device is fatal and returned to the caller.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	framesPerBuffer := int(float64(s.config.SampleRate) * s.config.ChunkDuration.Seconds())
	if framesPerBuffer <= 0 {
		return fmt.Errorf("invalid chunk duration %v at sample rate %d",
			s.config.ChunkDuration, s.config.SampleRate)
	}

	stream, err := s.openStream(framesPerBuffer)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	s.stream = stream
	s.started = true

	s.logger.Info("Audio capture started",
		slog.Int("sample_rate", s.config.SampleRate),
		slog.Int("frames_per_buffer", framesPerBuffer),
		slog.Int("device_index", s.config.DeviceIndex),
	)

	return nil
}

// openStream opens the configured device, or the system default when
// DeviceIndex is negative. Must be called with the lock held.
func (s *Source) openStream(framesPerBuffer int) (*portaudio.Stream, error) {
	if s.config.DeviceIndex < 0 {
		return portaudio.OpenDefaultStream(
			s.config.Channels,
			0, // no output
			float64(s.config.SampleRate),
			framesPerBuffer,
			s.handleFrames,
		)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	if s.config.DeviceIndex >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (%d devices)",
			s.config.DeviceIndex, len(devices))
	}

	device := devices[s.config.DeviceIndex]
	if device.MaxInputChannels < s.config.Channels {
		return nil, fmt.Errorf("device %q has %d input channels, need %d",
			device.Name, device.MaxInputChannels, s.config.Channels)
	}

	params := portaudio.HighLatencyParameters(device, nil)
	params.Input.Channels = s.config.Channels
	params.SampleRate = float64(s.config.SampleRate)
	params.FramesPerBuffer = framesPerBuffer

	return portaudio.OpenStream(params, s.handleFrames)
}

// handleFrames is the capture callback, invoked by the audio subsystem on its
// own timing. It must return promptly: it converts, wraps, and does one
// non-blocking push. It never waits on a lock or touches the buffer directly.
func (s *Source) handleFrames(in []int16) {
	samples := audio.NormalizeSamples(in)
	chunk := audio.NewChunk(samples, s.config.SampleRate, time.Now())
	s.queue.TryPush(chunk)
}

// Stop closes the stream. A call before Start, or a second call, is a no-op.
// Stop never panics; close errors are logged and swallowed.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if err := s.stream.Stop(); err != nil {
		s.logger.Warn("Error stopping input stream", slog.String("error", err.Error()))
	}

	if err := s.stream.Close(); err != nil {
		s.logger.Warn("Error closing input stream", slog.String("error", err.Error()))
	}

	s.stream = nil
	s.started = false

	s.logger.Info("Audio capture stopped",
		slog.Uint64("chunks_dropped", s.queue.Dropped()),
	)
}

// NextChunk pulls one chunk from the queue, blocking up to timeout.
// The second return value is false on timeout; that is not an error.
func (s *Source) NextChunk(timeout time.Duration) (*audio.Chunk, bool) {
	return s.queue.Pop(timeout)
}

// IsStarted reports whether the stream is currently open.
func (s *Source) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
