// Package capture owns the microphone input stream via PortAudio.
// The stream callback runs on the audio subsystem's own schedule; it converts
// raw PCM frames to normalized float32 chunks and hands them to a bounded
// queue without ever blocking, since a stalled callback risks dropped
// hardware frames.
package capture
