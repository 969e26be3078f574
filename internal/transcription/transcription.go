package transcription

import (
	"context"
	"time"
)

// Request carries one batch of drained audio to the inference engine.
type Request struct {
	Samples    []float32 // normalized to [-1.0, 1.0]
	SampleRate int       // 16000 Hz throughout the pipeline
	Language   string    // language hint; empty for auto-detection
}

// Result is one produced transcription.
type Result struct {
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
	Partial   bool      `json:"partial"`
}

// Transcriber is the common interface for transcription providers. It is
// stateless from the caller's perspective, safe to call repeatedly, and
// blocks for the duration of the call.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
