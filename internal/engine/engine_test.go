package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/takuyakubo/voice-modals/internal/audio"
)

// fakeSource hands out pre-loaded chunks and tracks lifecycle calls.
type fakeSource struct {
	chunks   chan *audio.Chunk
	startErr error
	starts   int
	stops    int

	mu sync.Mutex
}

func newFakeSource() *fakeSource {
	return &fakeSource{chunks: make(chan *audio.Chunk, 64)}
}

func (f *fakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeSource) NextChunk(timeout time.Duration) (*audio.Chunk, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-f.chunks:
		return c, true
	case <-timer.C:
		return nil, false
	}
}

func (f *fakeSource) feed(seconds float64) {
	n := int(seconds * 16000)
	f.chunks <- audio.NewChunk(make([]float32, n), 16000, time.Now())
}

func testEngine(source AudioSource, ft *fakeTranscriber, rec *resultRecorder, interval time.Duration) (*Engine, *audio.Buffer) {
	buffer := audio.NewBuffer()
	scheduler := testScheduler(buffer, ft, rec, interval)
	e := NewEngine(source, nil, buffer, scheduler, testLogger(), nil)
	e.pullTimeout = 10 * time.Millisecond
	return e, buffer
}

func TestEngineEndToEnd(t *testing.T) {
	source := newFakeSource()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	e, _ := testEngine(source, ft, rec, 30*time.Millisecond)

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	source.feed(0.5)
	source.feed(0.5)

	time.Sleep(150 * time.Millisecond)
	e.Stop()

	if ft.callCount() == 0 {
		t.Fatal("Expected pumped audio to reach the transcriber")
	}

	if rec.count() == 0 {
		t.Fatal("Expected at least one result delivered")
	}

	stats := e.GetStats()
	if stats.ChunksPumped != 2 {
		t.Errorf("Expected 2 chunks pumped, got %d", stats.ChunksPumped)
	}
	if stats.Running {
		t.Error("Expected engine stopped in stats")
	}
}

func TestEngineStartFailurePropagates(t *testing.T) {
	source := newFakeSource()
	source.startErr = errors.New("no input device")
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	e, _ := testEngine(source, ft, rec, 20*time.Millisecond)

	if err := e.Start(); err == nil {
		t.Fatal("Expected error when the source fails to start")
	}

	if e.IsRunning() {
		t.Error("Expected engine not running after failed start")
	}

	// The scheduler was never started.
	if e.scheduler.State() != StateIdle {
		t.Errorf("Expected idle scheduler after failed start, got %v", e.scheduler.State())
	}
}

func TestEngineIdempotentStartStop(t *testing.T) {
	source := newFakeSource()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	e, _ := testEngine(source, ft, rec, 20*time.Millisecond)

	// Stop before start is a no-op.
	e.Stop()

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Second start failed: %v", err)
	}

	source.mu.Lock()
	starts := source.starts
	source.mu.Unlock()
	if starts != 1 {
		t.Errorf("Expected source started once, got %d", starts)
	}

	e.Stop()
	e.Stop()

	source.mu.Lock()
	stops := source.stops
	source.mu.Unlock()
	if stops != 1 {
		t.Errorf("Expected source stopped once, got %d", stops)
	}
}

func TestEngineRestartDiscardsStaleAudio(t *testing.T) {
	source := newFakeSource()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	// Long interval so the scheduler never drains during the test.
	e, buffer := testEngine(source, ft, rec, time.Hour)

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	source.feed(1.0)
	time.Sleep(50 * time.Millisecond)

	if buffer.SampleCount() == 0 {
		t.Fatal("Expected audio buffered before stop")
	}

	e.Stop()

	if err := e.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	defer e.Stop()

	if buffer.SampleCount() != 0 {
		t.Errorf("Expected buffer cleared on restart, got %d samples", buffer.SampleCount())
	}
}

func TestEngineStatsIncludeQueue(t *testing.T) {
	queue := audio.NewChunkQueue(8)
	source := newFakeSource()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	buffer := audio.NewBuffer()
	scheduler := testScheduler(buffer, ft, rec, time.Hour)
	e := NewEngine(source, queue, buffer, scheduler, testLogger(), nil)

	queue.TryPush(audio.NewChunk(make([]float32, 16), 16000, time.Now()))

	stats := e.GetStats()
	if stats.QueueSize != 1 {
		t.Errorf("Expected queue size 1 in stats, got %d", stats.QueueSize)
	}
}
