package audio

import (
	"sync"
	"time"
)

// Buffer accumulates dequeued chunks until the processing scheduler drains
// them. A single mutex guards both operations; Add and Drain are short and
// never block while holding the lock, so no further synchronization is
// needed. A chunk is appended at most once and observed by at most one drain.
type Buffer struct {
	pending     []*Chunk
	sampleCount int

	// Statistics
	chunksAdded uint64
	drains      uint64
	lastAdd     time.Time
	lastDrain   time.Time

	mu sync.Mutex
}

// BufferStats represents buffer statistics for monitoring.
type BufferStats struct {
	PendingChunks   int       `json:"pending_chunks"`
	BufferedSamples int       `json:"buffered_samples"`
	ChunksAdded     uint64    `json:"chunks_added"`
	Drains          uint64    `json:"drains"`
	LastAdd         time.Time `json:"last_add"`
	LastDrain       time.Time `json:"last_drain"`
}

// NewBuffer creates an empty transcription buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add appends a chunk to the pending sequence. Chunks must be added in the
// order they were dequeued, which is the order they were captured.
func (b *Buffer) Add(c *Chunk) {
	if c == nil || len(c.Samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, c)
	b.sampleCount += len(c.Samples)
	b.chunksAdded++
	b.lastAdd = time.Now()
}

// Drain atomically takes all pending chunks, concatenates their samples into
// one contiguous array in arrival order, and clears the buffer. Returns nil
// when the buffer is empty. Concurrent Adds land entirely before or entirely
// after the drain; no chunk is split or duplicated.
func (b *Buffer) Drain() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}

	samples := make([]float32, 0, b.sampleCount)
	for _, c := range b.pending {
		samples = append(samples, c.Samples...)
	}

	b.pending = b.pending[:0]
	b.sampleCount = 0
	b.drains++
	b.lastDrain = time.Now()

	return samples
}

// Reset discards all pending audio without returning it. Used on engine
// restart so no chunk captured before a stop appears in a later drain.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = b.pending[:0]
	b.sampleCount = 0
}

// SampleCount returns the number of samples currently buffered.
func (b *Buffer) SampleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sampleCount
}

// PendingChunks returns the number of chunks awaiting the next drain.
func (b *Buffer) PendingChunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// BufferedDuration returns the playback duration of the buffered audio.
func (b *Buffer) BufferedDuration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(float64(b.sampleCount) / float64(sampleRate) * float64(time.Second))
}

// GetStats returns current buffer statistics.
func (b *Buffer) GetStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStats{
		PendingChunks:   len(b.pending),
		BufferedSamples: b.sampleCount,
		ChunksAdded:     b.chunksAdded,
		Drains:          b.drains,
		LastAdd:         b.lastAdd,
		LastDrain:       b.lastDrain,
	}
}
