package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/takuyakubo/voice-modals/internal/audio"
	"github.com/takuyakubo/voice-modals/internal/capture"
	"github.com/takuyakubo/voice-modals/internal/config"
	"github.com/takuyakubo/voice-modals/internal/engine"
	"github.com/takuyakubo/voice-modals/internal/metrics"
	"github.com/takuyakubo/voice-modals/internal/server"
	"github.com/takuyakubo/voice-modals/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-modals"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	listDevices := flag.Bool("list-devices", false, "List audio input devices and exit")
	flag.Parse()

	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list devices: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Float64("chunk_duration", cfg.Capture.ChunkDuration),
		slog.Int("device_index", cfg.Capture.DeviceIndex),
		slog.Float64("processing_interval", cfg.Processing.Interval),
		slog.Float64("min_audio_duration", cfg.Processing.MinAudioDuration),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize the audio subsystem before any stream is opened
	if err := capture.Initialize(); err != nil {
		logger.Error("Failed to initialize audio subsystem", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer capture.Terminate()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Build the pipeline: queue, source, buffer, transcriber, scheduler
	queue := audio.NewChunkQueue(cfg.Capture.QueueCapacity)
	buffer := audio.NewBuffer()

	source := capture.NewSource(capture.Config{
		SampleRate:    cfg.Capture.SampleRate,
		Channels:      cfg.Capture.Channels,
		ChunkDuration: cfg.Capture.GetChunkDuration(),
		DeviceIndex:   cfg.Capture.DeviceIndex,
	}, queue, logger)

	client, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hub := server.NewTranscriptHub(logger)

	// Results go to stdout and to any connected WebSocket clients
	sink := func(result *transcription.Result) {
		fmt.Printf("[%s] %s\n", result.Timestamp.Format("15:04:05"), result.Text)
		hub.Broadcast(result)
	}

	scheduler := engine.NewScheduler(engine.SchedulerConfig{
		Interval:         cfg.Processing.GetInterval(),
		MinAudioDuration: cfg.Processing.GetMinAudioDuration(),
		SampleRate:       cfg.Capture.SampleRate,
		Language:         cfg.Processing.Language,
		JoinTimeout:      cfg.Processing.GetJoinTimeoutDuration(),
	}, buffer, client, sink, logger, appMetrics)

	eng := engine.NewEngine(source, queue, buffer, scheduler, logger, appMetrics)

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, eng, client, hub, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the pipeline
	if err := eng.Start(); err != nil {
		logger.Error("Failed to start streaming engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, listening for audio...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the pipeline: scheduler, pump, then the audio source
	eng.Stop()
	queue.Close()
	client.Close()

	// Final statistics
	stats := eng.GetStats()
	clientStats := client.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("chunks_pumped", stats.ChunksPumped),
		slog.Uint64("chunks_dropped", stats.QueueDropped),
		slog.Uint64("ticks", stats.Scheduler.Ticks),
		slog.Uint64("batches_sent", stats.Scheduler.BatchesSent),
		slog.Uint64("results_delivered", stats.Scheduler.ResultsDelivered),
		slog.Uint64("transcription_failures", stats.Scheduler.Failures),
		slog.Float64("transcription_success_rate", clientStats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// printDevices lists input-capable audio devices on stdout.
func printDevices() error {
	if err := capture.Initialize(); err != nil {
		return err
	}
	defer capture.Terminate()

	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No input devices found")
		return nil
	}

	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %3d  %-40s  %d ch  %.0f Hz\n",
			marker, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}

	return nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
