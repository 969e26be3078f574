package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/takuyakubo/voice-modals/internal/audio"
	"github.com/takuyakubo/voice-modals/internal/transcription"
)

// fakeTranscriber returns canned results or errors and records every request.
type fakeTranscriber struct {
	results []*transcription.Result
	errs    []error
	calls   int
	reqs    []transcription.Request
	delay   time.Duration

	mu sync.Mutex
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	if call < len(f.results) {
		return f.results[call], nil
	}

	return &transcription.Result{
		Text:      fmt.Sprintf("transcript %d", call),
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// resultRecorder collects sink deliveries in order.
type resultRecorder struct {
	results []*transcription.Result
	mu      sync.Mutex
}

func (r *resultRecorder) sink(res *transcription.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *resultRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *resultRecorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	texts := make([]string, len(r.results))
	for i, res := range r.results {
		texts[i] = res.Text
	}
	return texts
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testScheduler(buffer *audio.Buffer, ft *fakeTranscriber, rec *resultRecorder, interval time.Duration) *Scheduler {
	return NewScheduler(SchedulerConfig{
		Interval:         interval,
		MinAudioDuration: 100 * time.Millisecond,
		SampleRate:       16000,
		JoinTimeout:      2 * time.Second,
	}, buffer, ft, rec.sink, testLogger(), nil)
}

// addAudio puts seconds worth of audio into the buffer as a single chunk.
func addAudio(buffer *audio.Buffer, seconds float64) {
	n := int(seconds * 16000)
	buffer.Add(audio.NewChunk(make([]float32, n), 16000, time.Now()))
}

func TestSchedulerEmptyTicksProduceNothing(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if ft.callCount() != 0 {
		t.Errorf("Expected no transcription calls on empty buffer, got %d", ft.callCount())
	}

	if rec.count() != 0 {
		t.Errorf("Expected no sink deliveries, got %d", rec.count())
	}

	stats := s.GetStats()
	if stats.Ticks == 0 {
		t.Error("Expected ticks to be counted")
	}
	if stats.EmptyTicks != stats.Ticks {
		t.Errorf("Expected all %d ticks empty, got %d", stats.Ticks, stats.EmptyTicks)
	}
}

func TestSchedulerDiscardsShortBatch(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)

	// 50ms of audio, below the 100ms minimum.
	addAudio(buffer, 0.05)

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if ft.callCount() != 0 {
		t.Errorf("Expected short batch to be discarded, got %d transcription calls", ft.callCount())
	}

	stats := s.GetStats()
	if stats.BatchesDiscarded != 1 {
		t.Errorf("Expected 1 discarded batch, got %d", stats.BatchesDiscarded)
	}

	if buffer.SampleCount() != 0 {
		t.Error("Expected discarded audio to be gone from the buffer")
	}
}

func TestSchedulerProcessesBatch(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{
		results: []*transcription.Result{{Text: "hello", Timestamp: time.Now()}},
	}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)

	addAudio(buffer, 1.0)

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if ft.callCount() != 1 {
		t.Fatalf("Expected 1 transcription call, got %d", ft.callCount())
	}

	ft.mu.Lock()
	req := ft.reqs[0]
	ft.mu.Unlock()

	if len(req.Samples) != 16000 {
		t.Errorf("Expected 16000 samples in request, got %d", len(req.Samples))
	}
	if req.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", req.SampleRate)
	}

	if rec.count() != 1 {
		t.Fatalf("Expected 1 result delivered, got %d", rec.count())
	}
	if rec.texts()[0] != "hello" {
		t.Errorf("Expected text %q, got %q", "hello", rec.texts()[0])
	}
}

func TestSchedulerEmptyTextNotDelivered(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{
		results: []*transcription.Result{{Text: "", Timestamp: time.Now()}},
	}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)

	addAudio(buffer, 1.0)

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if ft.callCount() != 1 {
		t.Fatalf("Expected 1 transcription call, got %d", ft.callCount())
	}

	if rec.count() != 0 {
		t.Errorf("Expected empty text to be suppressed, got %d deliveries", rec.count())
	}
}

func TestSchedulerSurvivesTranscriptionFailure(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{
		errs:    []error{errors.New("inference engine unavailable")},
		results: []*transcription.Result{nil, {Text: "recovered", Timestamp: time.Now()}},
	}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 30*time.Millisecond)

	addAudio(buffer, 1.0)
	s.Start()

	// Wait for the failing tick, then feed audio for the recovering one.
	time.Sleep(60 * time.Millisecond)
	addAudio(buffer, 1.0)
	time.Sleep(80 * time.Millisecond)

	s.Stop()

	if ft.callCount() < 2 {
		t.Fatalf("Expected at least 2 transcription calls, got %d", ft.callCount())
	}

	stats := s.GetStats()
	if stats.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", stats.Failures)
	}

	if rec.count() != 1 {
		t.Fatalf("Expected 1 result after recovery, got %d", rec.count())
	}
	if rec.texts()[0] != "recovered" {
		t.Errorf("Expected text %q, got %q", "recovered", rec.texts()[0])
	}
}

func TestSchedulerTickCadence(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 100*time.Millisecond)
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()

	stats := s.GetStats()
	if stats.Ticks < 1 || stats.Ticks > 3 {
		t.Errorf("Expected roughly 2 ticks in 250ms at 100ms interval, got %d", stats.Ticks)
	}
}

func TestSchedulerDeliversInOrder(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{
		results: []*transcription.Result{
			{Text: "first", Timestamp: time.Now()},
			{Text: "second", Timestamp: time.Now()},
			{Text: "third", Timestamp: time.Now()},
		},
	}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)
	s.Start()

	// Space the batches well apart from the tick interval so each lands in
	// its own drain.
	for i := 0; i < 3; i++ {
		addAudio(buffer, 0.5)
		time.Sleep(70 * time.Millisecond)
	}

	s.Stop()

	texts := rec.texts()
	if len(texts) != 3 {
		t.Fatalf("Expected 3 results, got %d: %v", len(texts), texts)
	}

	expected := []string{"first", "second", "third"}
	for i, want := range expected {
		if texts[i] != want {
			t.Errorf("Result %d: expected %q, got %q", i, want, texts[i])
		}
	}
}

func TestSchedulerIdempotentStartStop(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)

	// Stop before start is a no-op.
	s.Stop()
	if s.State() != StateIdle {
		t.Errorf("Expected idle state, got %v", s.State())
	}

	s.Start()
	s.Start() // second start is a no-op
	if s.State() != StateRunning {
		t.Errorf("Expected running state, got %v", s.State())
	}

	s.Stop()
	s.Stop() // second stop is a no-op
	if s.State() != StateIdle {
		t.Errorf("Expected idle state after stop, got %v", s.State())
	}
}

func TestSchedulerStopCancelsInFlightRequest(t *testing.T) {
	buffer := audio.NewBuffer()
	ft := &fakeTranscriber{delay: 10 * time.Second}
	rec := &resultRecorder{}

	s := testScheduler(buffer, ft, rec, 20*time.Millisecond)

	addAudio(buffer, 1.0)
	s.Start()

	// Let the tick start the slow transcription.
	time.Sleep(60 * time.Millisecond)

	stopStart := time.Now()
	s.Stop()

	if elapsed := time.Since(stopStart); elapsed > time.Second {
		t.Errorf("Expected Stop to cancel the in-flight request promptly, took %v", elapsed)
	}

	if rec.count() != 0 {
		t.Errorf("Expected no delivery from a cancelled request, got %d", rec.count())
	}
}
