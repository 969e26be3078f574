package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// ChunkQueue is a bounded FIFO decoupling the real-time capture callback from
// the consumer pull loop. The producer side never blocks: when the queue is
// full the oldest chunk is evicted to make room, since for live audio recency
// matters more than completeness. The consumer side may block with a timeout.
type ChunkQueue struct {
	ch      chan *Chunk
	dropped atomic.Uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// NewChunkQueue creates a queue holding at most capacity chunks.
func NewChunkQueue(capacity int) *ChunkQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ChunkQueue{
		ch:     make(chan *Chunk, capacity),
		closed: make(chan struct{}),
	}
}

// TryPush enqueues a chunk without ever blocking. On overflow it drops the
// oldest queued chunk (counted via Dropped) and enqueues the new one. Returns
// false only when the queue is closed.
func (q *ChunkQueue) TryPush(c *Chunk) bool {
	for {
		select {
		case <-q.closed:
			return false
		case q.ch <- c:
			return true
		default:
		}

		// Queue full: evict the oldest entry and retry. A concurrent Pop may
		// win the race for the oldest chunk, in which case the retry succeeds
		// without dropping anything.
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Pop removes the oldest chunk, blocking up to timeout. The second return
// value is false on timeout or when the queue is closed and empty; a timeout
// is not an error.
func (q *ChunkQueue) Pop(timeout time.Duration) (*Chunk, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-q.ch:
		return c, true
	case <-q.closed:
		// Drain anything already queued before reporting closed.
		select {
		case c := <-q.ch:
			return c, true
		default:
			return nil, false
		}
	case <-timer.C:
		return nil, false
	}
}

// Close marks the queue closed. Queued chunks that were never popped are
// discarded with the queue; this residual audio is a documented loss at
// shutdown, not an error.
func (q *ChunkQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// Len returns the number of chunks currently queued.
func (q *ChunkQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *ChunkQueue) Cap() int {
	return cap(q.ch)
}

// Dropped returns the number of chunks evicted due to overflow.
func (q *ChunkQueue) Dropped() uint64 {
	return q.dropped.Load()
}
