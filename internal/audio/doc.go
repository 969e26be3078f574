// Package audio provides the data path between capture and transcription:
// immutable sample chunks, a bounded drop-oldest queue decoupling the capture
// callback from the consumer, a mutex-guarded accumulation buffer with atomic
// drain, and PCM/WAV conversion for the transcription API.
package audio
