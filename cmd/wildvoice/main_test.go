package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/wildlens-ai/wildvoice/pkg/voice/config"
	"github.com/wildlens-ai/wildvoice/pkg/voice/session"
	"github.com/wildlens-ai/wildvoice/pkg/voice/transport"
)

func noopSignalDeps(deps *voiceDeps) {
	deps.signalNotify = func(chan<- os.Signal, ...os.Signal) {}
	deps.signalStop = func(chan<- os.Signal) {}
}

func TestRunVoice_ReturnsErrorWhenConfigLoadFails(t *testing.T) {
	deps := defaultVoiceDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{}, errors.New("no api key")
	}
	noopSignalDeps(&deps)

	err := runVoice(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), &bytes.Buffer{}, deps)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("err=%v, want load config failure", err)
	}
}

func TestRunVoice_ReturnsErrorWhenControllerBuildFails(t *testing.T) {
	deps := defaultVoiceDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{Transport: config.TransportGemini, Model: "m", APIKey: "k"}, nil
	}
	deps.newController = func(config.Config, *slog.Logger) (*session.Controller, error) {
		return nil, errors.New("no output device")
	}
	noopSignalDeps(&deps)

	err := runVoice(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), &bytes.Buffer{}, deps)
	if err == nil || !strings.Contains(err.Error(), "build session") {
		t.Fatalf("err=%v, want build session failure", err)
	}
}

func TestSelectTransport(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tr, err := selectTransport(config.TransportGemini, logger)
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if _, ok := tr.(*transport.Gemini); !ok {
		t.Fatalf("gemini kind built %T", tr)
	}

	tr, err = selectTransport(config.TransportBidiWS, logger)
	if err != nil {
		t.Fatalf("bidiws: %v", err)
	}
	if _, ok := tr.(*transport.BidiWS); !ok {
		t.Fatalf("bidiws kind built %T", tr)
	}

	if _, err := selectTransport(config.TransportKind("smoke-signals"), logger); err == nil {
		t.Fatal("unknown kind must fail")
	}
}

func TestAnimalFromConfig(t *testing.T) {
	cfg := config.Config{
		AnimalName:           "fennec fox",
		AnimalScientificName: "Vulpes zerda",
		AnimalHabitat:        "Sahara desert",
		AnimalDiet:           "insects and small rodents",
		AnimalFunFact:        "Its ears radiate heat.",
	}
	a := animalFromConfig(cfg)
	if a.CommonName != "fennec fox" || a.ScientificName != "Vulpes zerda" {
		t.Fatalf("names not mapped: %+v", a)
	}
	prompt := a.SystemPrompt()
	for _, want := range []string{"fennec fox", "Sahara desert", "Its ears radiate heat."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	if got := parseLogLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("debug=%v", got)
	}
	if got := parseLogLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("fallback=%v, want info", got)
	}
}
