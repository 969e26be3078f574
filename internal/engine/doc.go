// Package engine drives the streaming pipeline: a pump goroutine moves
// chunks from the capture queue into the transcription buffer, and a
// fixed-interval scheduler drains the buffer, calls the transcriber, and
// delivers results to the sink. The Engine ties both to the audio source
// with idempotent start/stop lifecycle.
package engine
