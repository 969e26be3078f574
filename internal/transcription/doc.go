// Package transcription defines the collaborator boundary for speech
// inference and implements an HTTP client for a Whisper-style transcription
// API. The client sends audio as a WAV multipart upload with retry logic,
// exponential backoff, and rate limiting.
package transcription
