// ABOUTME: Entry point for the speechbridge call client
// ABOUTME: Loads config, wires microphone, transport and speaker, and runs one call
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/speechbridge/speechbridge-go/internal/config"
	"github.com/speechbridge/speechbridge-go/internal/metrics"
	"github.com/speechbridge/speechbridge-go/internal/ui"
	"github.com/speechbridge/speechbridge-go/internal/version"
	"github.com/speechbridge/speechbridge-go/pkg/audio"
	"github.com/speechbridge/speechbridge-go/pkg/audio/input"
	"github.com/speechbridge/speechbridge-go/pkg/audio/output"
	"github.com/speechbridge/speechbridge-go/pkg/capture"
	"github.com/speechbridge/speechbridge-go/pkg/playback"
	"github.com/speechbridge/speechbridge-go/pkg/speechbridge"
	"github.com/speechbridge/speechbridge-go/pkg/store"
	"github.com/speechbridge/speechbridge-go/pkg/transport"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("speechbridge", pflag.ExitOnError)
	config.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	cfgFile, _ := fs.GetString("config")
	cfg, err := config.Load(cfgFile, fs)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var logOut io.Writer = f
	if !cfg.UI.Enabled {
		// Streaming logs mode: log to both stdout and file
		logOut = io.MultiWriter(os.Stdout, f)
	}
	logger := config.SetupLogging(cfg.Logging, logOut)

	if err := run(cfg, logger); err != nil {
		logger.Error("call failed", "error", err)
		if cfg.UI.Enabled {
			fmt.Fprintf(os.Stderr, "call failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting", "product", version.Product, "version", version.Version,
		"transport", cfg.Transport.Kind, "url", cfg.Transport.URL)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				logger.Warn("metrics endpoint failed", "error", err)
			}
		}()
	}

	history, err := openStore(cfg, logger, m)
	if err != nil {
		return err
	}

	dev, err := output.New(cfg.Audio.Output, cfg.Audio.PlaybackSampleRate, 1)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	call, err := transport.Dial(ctx, cfg.Transport.Kind, transport.Config{
		URL:       cfg.Transport.URL,
		Token:     cfg.Transport.Token,
		Host:      cfg.Transport.Host,
		Method:    cfg.Transport.Method,
		Deadline:  cfg.Transport.Deadline,
		CloseMode: transport.CloseMode(cfg.Transport.CloseMode),
		TLS:       cfg.Transport.TLS,
		UserAgent: version.UserAgent(),
		Logger:    logger,
	})
	if err != nil {
		dev.Close()
		return fmt.Errorf("connection failed: %w", err)
	}

	mic := input.NewMalgo(input.Config{SampleRate: cfg.Audio.CaptureSampleRate, Channels: 1})
	proc, err := capture.Register(mic, capture.Config{
		Encoding:  audio.Encoding(cfg.Audio.Encoding),
		QueueSize: cfg.Audio.CaptureQueue,
		Recorder:  m,
	})
	if err != nil {
		call.Close()
		dev.Close()
		return err
	}
	defer mic.Stop()

	// TUI setup
	var monitor *ui.Monitor
	var controls *ui.Controls
	monitorDone := make(chan struct{})
	if cfg.UI.Enabled {
		controls = ui.NewControls()
		monitor = ui.NewMonitor(controls, cfg.Audio.Volume)
		// Update blocks until the program is running
		go func() {
			defer close(monitorDone)
			if err := monitor.Run(); err != nil {
				logger.Warn("monitor stopped", "error", err)
			}
		}()
		defer func() {
			monitor.Stop()
			<-monitorDone
		}()
	}
	updateTUI := func(msg ui.StatusMsg) {
		if monitor != nil {
			monitor.Update(msg)
		}
	}

	session, err := speechbridge.NewSession(speechbridge.SessionConfig{
		Call:              call,
		Capture:           proc,
		Device:            dev,
		Store:             history,
		CaptureSampleRate: cfg.Audio.CaptureSampleRate,
		MixSampleRate:     cfg.Recording.SampleRate,
		FlushInterval:     cfg.Audio.FlushInterval,
		Logger:            logger,
		PlaybackOptions: []playback.Option{
			playback.WithResumeDebounce(cfg.Audio.ResumeDebounce),
			playback.WithRecorder(m),
		},
		OnStateChange: func(state speechbridge.State) {
			updateTUI(ui.StatusMsg{State: string(state)})
		},
		OnError: func(err error) {
			logger.Warn("call error", "error", err)
			m.CallError()
			updateTUI(ui.StatusMsg{Error: err.Error()})
		},
	})
	if err != nil {
		call.Close()
		dev.Close()
		return err
	}
	session.SetVolume(cfg.Audio.Volume)

	if err := session.Start(ctx); err != nil {
		return err
	}
	started := time.Now()
	m.CallStarted()

	connected := true
	updateTUI(ui.StatusMsg{
		Connected:    &connected,
		Transport:    cfg.Transport.Kind,
		Endpoint:     cfg.Transport.URL,
		Conversation: session.ID(),
		Encoding:     cfg.Audio.Encoding,
	})

	quit := make(chan struct{})
	if monitor != nil {
		go handleControls(session, controls, quit)
		go statsUpdateLoop(ctx, session, updateTUI)
	}

	// Wait for the user, a signal or the service to end the call
	select {
	case <-quit:
		logger.Info("received quit from monitor")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case <-session.Finished():
		logger.Info("call ended by service")
	}

	endCtx, endCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer endCancel()

	recs, endErr := session.End(endCtx)
	m.CallEnded(time.Since(started))

	if err := session.Wait(endCtx); err != nil {
		logger.Warn("saving recordings failed", "error", err)
	}
	if recs.Mixed != nil {
		logger.Info("call recorded",
			"conversation", session.ID(),
			"mixed", speechbridge.RecordingID(session.ID(), speechbridge.LegMixed),
			"seconds", float64(recs.Mixed.Header.DataLength)/float64(2*cfg.Recording.SampleRate))
	}

	stats := session.Stats()
	logger.Info("call stopped",
		"frames", stats.FramesCaptured,
		"bytes_sent", stats.BytesSent,
		"chunks_received", stats.ChunksReceived,
		"played", stats.Playback.Played)

	if endErr != nil && !errors.Is(endErr, transport.ErrCallClosed) {
		return endErr
	}
	return nil
}

// openStore returns the recording history, or nil when recording is off
func openStore(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*store.Store, error) {
	if !cfg.Recording.Enabled {
		return nil, nil
	}

	var backend store.Backend = store.NewMemoryBackend()
	if cfg.Recording.Dir != "" {
		fb, err := store.NewFileBackend(cfg.Recording.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open recordings: %w", err)
		}
		backend = fb
	}

	return store.New(backend,
		store.WithCapacity(cfg.Recording.Capacity),
		store.WithRecorder(m),
		store.WithLogger(logger),
	), nil
}

// handleControls applies monitor actions to the session
func handleControls(session *speechbridge.Session, controls *ui.Controls, quit chan<- struct{}) {
	for a := range controls.Actions {
		switch a.Kind {
		case ui.ActionQuit:
			close(quit)
			return
		case ui.ActionStopPlayback:
			session.BargeIn()
		case ui.ActionMute:
			session.SetMuted(a.Muted)
		case ui.ActionVolume:
			session.SetVolume(a.Volume)
		}
	}
}

// statsUpdateLoop periodically updates the monitor with call statistics
func statsUpdateLoop(ctx context.Context, session *speechbridge.Session, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Finished():
			return
		case <-ticker.C:
			stats := session.Stats()
			playing := session.Engine().State() == playback.StatePlaying
			updateTUI(ui.StatusMsg{
				Playing: &playing,
				Stats: &ui.Stats{
					FramesCaptured: stats.FramesCaptured,
					BytesSent:      stats.BytesSent,
					ChunksReceived: stats.ChunksReceived,
					Played:         stats.Playback.Played,
					Failed:         stats.Playback.Failed,
					Cancelled:      stats.Playback.Cancelled,
					Pending:        session.Engine().Pending(),
				},
			})
		}
	}
}
