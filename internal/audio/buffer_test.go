package audio

import (
	"sync"
	"testing"
	"time"
)

func makeChunk(samples []float32) *Chunk {
	return NewChunk(samples, 16000, time.Now())
}

func TestNewBuffer(t *testing.T) {
	buffer := NewBuffer()

	if buffer == nil {
		t.Fatal("NewBuffer returned nil")
	}

	if buffer.SampleCount() != 0 {
		t.Errorf("Expected initial sample count 0, got %d", buffer.SampleCount())
	}

	if buffer.PendingChunks() != 0 {
		t.Errorf("Expected no pending chunks, got %d", buffer.PendingChunks())
	}
}

func TestDrainPreservesOrderAndLength(t *testing.T) {
	buffer := NewBuffer()

	chunks := [][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5},
		{0.6},
	}

	total := 0
	for _, s := range chunks {
		buffer.Add(makeChunk(s))
		total += len(s)
	}

	drained := buffer.Drain()
	if len(drained) != total {
		t.Fatalf("Expected %d samples, got %d", total, len(drained))
	}

	expected := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	for i, v := range expected {
		if drained[i] != v {
			t.Errorf("Sample %d: expected %f, got %f", i, v, drained[i])
		}
	}

	if buffer.SampleCount() != 0 {
		t.Errorf("Expected empty buffer after drain, got %d samples", buffer.SampleCount())
	}
}

func TestDrainEmptyBuffer(t *testing.T) {
	buffer := NewBuffer()

	if drained := buffer.Drain(); drained != nil {
		t.Errorf("Expected nil from empty drain, got %d samples", len(drained))
	}

	// Repeated drains stay nil
	if drained := buffer.Drain(); drained != nil {
		t.Errorf("Expected nil from repeated empty drain, got %d samples", len(drained))
	}
}

func TestDrainOneSecondChunks(t *testing.T) {
	buffer := NewBuffer()

	// Three 1s chunks at 16kHz
	for i := 0; i < 3; i++ {
		samples := make([]float32, 16000)
		for j := range samples {
			samples[j] = float32(i)
		}
		buffer.Add(makeChunk(samples))
	}

	drained := buffer.Drain()
	if len(drained) != 48000 {
		t.Fatalf("Expected 48000 samples, got %d", len(drained))
	}

	// Verify arrival order by checking the chunk boundaries
	if drained[0] != 0 || drained[16000] != 1 || drained[32000] != 2 {
		t.Errorf("Drained samples out of order: boundaries %f, %f, %f",
			drained[0], drained[16000], drained[32000])
	}
}

func TestAddIgnoresEmptyChunks(t *testing.T) {
	buffer := NewBuffer()

	buffer.Add(nil)
	buffer.Add(makeChunk(nil))
	buffer.Add(makeChunk([]float32{}))

	if buffer.PendingChunks() != 0 {
		t.Errorf("Expected no pending chunks, got %d", buffer.PendingChunks())
	}
}

func TestConcurrentAddAndDrain(t *testing.T) {
	buffer := NewBuffer()

	const producers = 4
	const chunksPerProducer = 250
	const chunkSize = 16

	var wg sync.WaitGroup

	// Producers tag every sample with a unique value so lost or duplicated
	// chunks show up in the totals.
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < chunksPerProducer; i++ {
				samples := make([]float32, chunkSize)
				tag := float32(id*chunksPerProducer + i)
				for j := range samples {
					samples[j] = tag
				}
				buffer.Add(makeChunk(samples))
			}
		}(p)
	}

	// Concurrent drainer collects everything that lands mid-flight.
	producersDone := make(chan struct{})
	drainerDone := make(chan struct{})
	var collected [][]float32
	go func() {
		defer close(drainerDone)
		for {
			if drained := buffer.Drain(); drained != nil {
				collected = append(collected, drained)
			}
			select {
			case <-producersDone:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()

	wg.Wait()
	close(producersDone)
	<-drainerDone

	// Final drain picks up the remainder.
	if drained := buffer.Drain(); drained != nil {
		collected = append(collected, drained)
	}

	totalSamples := 0
	seen := make(map[float32]int)
	for _, batch := range collected {
		totalSamples += len(batch)
		// Chunks are contiguous within a batch, so count tags per sample.
		for _, v := range batch {
			seen[v]++
		}
	}

	expectedSamples := producers * chunksPerProducer * chunkSize
	if totalSamples != expectedSamples {
		t.Errorf("Expected %d total samples across drains, got %d", expectedSamples, totalSamples)
	}

	for tag, count := range seen {
		if count != chunkSize {
			t.Errorf("Chunk tagged %f: expected %d samples, got %d (lost or duplicated)",
				tag, chunkSize, count)
		}
	}
}

func TestReset(t *testing.T) {
	buffer := NewBuffer()

	buffer.Add(makeChunk([]float32{0.1, 0.2}))
	buffer.Reset()

	if drained := buffer.Drain(); drained != nil {
		t.Errorf("Expected empty drain after reset, got %d samples", len(drained))
	}
}

func TestBufferStats(t *testing.T) {
	buffer := NewBuffer()

	buffer.Add(makeChunk([]float32{0.1, 0.2}))
	buffer.Add(makeChunk([]float32{0.3}))

	stats := buffer.GetStats()
	if stats.PendingChunks != 2 {
		t.Errorf("Expected 2 pending chunks, got %d", stats.PendingChunks)
	}
	if stats.BufferedSamples != 3 {
		t.Errorf("Expected 3 buffered samples, got %d", stats.BufferedSamples)
	}
	if stats.ChunksAdded != 2 {
		t.Errorf("Expected 2 chunks added, got %d", stats.ChunksAdded)
	}

	buffer.Drain()

	stats = buffer.GetStats()
	if stats.Drains != 1 {
		t.Errorf("Expected 1 drain, got %d", stats.Drains)
	}
	if stats.BufferedSamples != 0 {
		t.Errorf("Expected 0 buffered samples after drain, got %d", stats.BufferedSamples)
	}
}

func TestBufferedDuration(t *testing.T) {
	buffer := NewBuffer()

	buffer.Add(makeChunk(make([]float32, 8000))) // 0.5s at 16kHz

	duration := buffer.BufferedDuration(16000)
	if duration != 500*time.Millisecond {
		t.Errorf("Expected 500ms buffered, got %v", duration)
	}
}
