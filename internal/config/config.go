package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Processing    ProcessingConfig    `yaml:"processing"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig contains audio capture parameters
type CaptureConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	ChunkDuration float64 `yaml:"chunk_duration"` // seconds
	DeviceIndex   int     `yaml:"device_index"`   // -1 for default device
	QueueCapacity int     `yaml:"queue_capacity"` // chunks
}

// ProcessingConfig contains processing scheduler parameters
type ProcessingConfig struct {
	Interval         float64 `yaml:"interval"`           // seconds
	MinAudioDuration float64 `yaml:"min_audio_duration"` // seconds
	Language         string  `yaml:"language"`           // empty for auto-detect
	JoinTimeout      int     `yaml:"join_timeout"`       // seconds
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Processing.Validate(); err != nil {
		return fmt.Errorf("processing config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz, got %d", c.SampleRate)
	}

	if c.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", c.Channels)
	}

	if c.ChunkDuration <= 0 || c.ChunkDuration > 1 {
		return fmt.Errorf("chunk_duration must be between 0 and 1 second, got %f", c.ChunkDuration)
	}

	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}

	return nil
}

// Validate validates processing configuration
func (p *ProcessingConfig) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %f", p.Interval)
	}

	if p.MinAudioDuration <= 0 {
		return fmt.Errorf("min_audio_duration must be positive, got %f", p.MinAudioDuration)
	}

	if p.MinAudioDuration >= p.Interval {
		return fmt.Errorf("min_audio_duration (%f) must be less than interval (%f)",
			p.MinAudioDuration, p.Interval)
	}

	if p.JoinTimeout < 1 {
		return fmt.Errorf("join_timeout must be at least 1 second, got %d", p.JoinTimeout)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkDuration returns the capture chunk duration as a time.Duration
func (c *CaptureConfig) GetChunkDuration() time.Duration {
	return time.Duration(c.ChunkDuration * float64(time.Second))
}

// GetInterval returns the processing interval as a time.Duration
func (p *ProcessingConfig) GetInterval() time.Duration {
	return time.Duration(p.Interval * float64(time.Second))
}

// GetMinAudioDuration returns the minimum batch duration as a time.Duration
func (p *ProcessingConfig) GetMinAudioDuration() time.Duration {
	return time.Duration(p.MinAudioDuration * float64(time.Second))
}

// GetJoinTimeoutDuration returns the join timeout as a time.Duration
func (p *ProcessingConfig) GetJoinTimeoutDuration() time.Duration {
	return time.Duration(p.JoinTimeout) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
