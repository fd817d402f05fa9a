// Command wildvoice runs an interactive voice session about a single
// animal: microphone in, synthesized speech out, until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wildlens-ai/wildvoice/internal/dotenv"
	"github.com/wildlens-ai/wildvoice/pkg/voice/capture"
	"github.com/wildlens-ai/wildvoice/pkg/voice/config"
	"github.com/wildlens-ai/wildvoice/pkg/voice/playback"
	"github.com/wildlens-ai/wildvoice/pkg/voice/session"
	"github.com/wildlens-ai/wildvoice/pkg/voice/transport"
)

type voiceDeps struct {
	loadConfig    func() (config.Config, error)
	newController func(config.Config, *slog.Logger) (*session.Controller, error)
	signalNotify  func(chan<- os.Signal, ...os.Signal)
	signalStop    func(chan<- os.Signal)
	logLevel      *slog.LevelVar
}

func defaultVoiceDeps() voiceDeps {
	return voiceDeps{
		loadConfig:    config.LoadFromEnv,
		newController: newController,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// selectTransport maps the configured kind to its adapter.
func selectTransport(kind config.TransportKind, logger *slog.Logger) (transport.Transport, error) {
	switch kind {
	case config.TransportGemini:
		return &transport.Gemini{Logger: logger}, nil
	case config.TransportBidiWS:
		return &transport.BidiWS{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

func animalFromConfig(cfg config.Config) session.AnimalContext {
	return session.AnimalContext{
		CommonName:     cfg.AnimalName,
		ScientificName: cfg.AnimalScientificName,
		Description:    cfg.AnimalDescription,
		Habitat:        cfg.AnimalHabitat,
		Diet:           cfg.AnimalDiet,
		FunFact:        cfg.AnimalFunFact,
	}
}

// newController assembles the real device chain around a session.
func newController(cfg config.Config, logger *slog.Logger) (*session.Controller, error) {
	tr, err := selectTransport(cfg.Transport, logger)
	if err != nil {
		return nil, err
	}

	device, err := playback.OpenPortAudioDevice(cfg.OutputSampleRate)
	if err != nil {
		return nil, fmt.Errorf("open output device: %w", err)
	}

	mic := capture.New(capture.Config{
		SampleRate: cfg.InputSampleRate,
		BlockSize:  cfg.CaptureBlockSize,
		Logger:     logger,
	})

	ctrl, err := session.New(session.Config{
		Transport: tr,
		Capture:   mic,
		NewPlayback: func(onDrained func()) session.Playback {
			return playback.New(playback.Config{
				Device:     device,
				SampleRate: cfg.OutputSampleRate,
				Logger:     logger,
				OnDrained:  onDrained,
			})
		},
		Animal:  animalFromConfig(cfg),
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Logger:  logger,
	})
	if err != nil {
		_ = device.Close()
		return nil, err
	}
	return ctrl, nil
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runVoice(ctx context.Context, logger *slog.Logger, out io.Writer, deps voiceDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newController == nil {
		return errors.New("missing newController dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = os.Stdout
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if deps.logLevel != nil {
		deps.logLevel.Set(parseLogLevel(cfg.LogLevel))
	}

	ctrl, err := deps.newController(cfg, logger)
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}

	logger.Info("starting voice session",
		"model", cfg.Model, "transport", string(cfg.Transport), "animal", cfg.AnimalName)
	ctrl.Start()

	go func() {
		for u := range ctrl.Updates() {
			if u.Err != "" {
				fmt.Fprintf(out, "status: %s (%s)\n", u.Status, u.Err)
				continue
			}
			fmt.Fprintf(out, "status: %s\n", u.Status)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		ctrl.Close()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		ctrl.Close()
	}

	if err := ctrl.Err(); err != nil {
		return fmt.Errorf("session ended: %w", err)
	}
	logger.Info("session closed")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps voiceDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	level := new(slog.LevelVar)
	deps.logLevel = level
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if err := dotenv.Load(); err != nil {
		fmt.Fprintf(stderr, "wildvoice: %v\n", err)
		return 1
	}

	if err := runVoice(ctx, logger, os.Stdout, deps); err != nil {
		fmt.Fprintf(stderr, "wildvoice: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultVoiceDeps()))
}
