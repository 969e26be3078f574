package audio

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents one fixed-duration block of normalized audio samples
// produced by the capture callback. A chunk is immutable after creation:
// the capture side hands over ownership of the sample slice and never
// touches it again.
type Chunk struct {
	ID         string
	Samples    []float32 // normalized to [-1.0, 1.0]
	SampleRate int
	Timestamp  time.Time
}

// NewChunk creates a chunk from an already-normalized sample slice.
// The caller must not modify samples after the call.
func NewChunk(samples []float32, sampleRate int, timestamp time.Time) *Chunk {
	return &Chunk{
		ID:         uuid.NewString(),
		Samples:    samples,
		SampleRate: sampleRate,
		Timestamp:  timestamp,
	}
}

// Duration returns the playback duration of the chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// NormalizeSamples converts 16-bit PCM samples to normalized float32 in
// [-1.0, 1.0], the format the transcription engine expects.
func NormalizeSamples(pcm []int16) []float32 {
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// DenormalizeSamples converts normalized float32 samples back to 16-bit PCM,
// clamping values outside [-1.0, 1.0].
func DenormalizeSamples(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := s * 32767.0
		pcm[i] = int16(v)
	}
	return pcm
}
