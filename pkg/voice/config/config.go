// Package config loads voice engine settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TransportKind selects the remote-agent adapter.
type TransportKind string

const (
	TransportGemini TransportKind = "gemini"
	TransportBidiWS TransportKind = "bidiws"
)

// DefaultModel is the live conversational model used when none is set.
const DefaultModel = "models/gemini-2.0-flash-live-001"

type Config struct {
	Model     string
	APIKey    string
	Transport TransportKind

	// Endpoint overrides the remote URL (bidiws transport only).
	Endpoint string

	InputSampleRate  int
	OutputSampleRate int
	CaptureBlockSize int

	LogLevel string

	// Animal context shown to the remote agent at session start.
	AnimalName           string
	AnimalScientificName string
	AnimalDescription    string
	AnimalHabitat        string
	AnimalDiet           string
	AnimalFunFact        string
}

// LoadFromEnv builds a Config from WILDVOICE_* environment variables.
// The API key also falls back to GEMINI_API_KEY and GOOGLE_API_KEY so
// existing SDK setups work unchanged.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Model:            envOr("WILDVOICE_MODEL", DefaultModel),
		APIKey:           envOr("WILDVOICE_API_KEY", envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY"))),
		Transport:        TransportKind(strings.ToLower(envOr("WILDVOICE_TRANSPORT", string(TransportGemini)))),
		Endpoint:         envOr("WILDVOICE_ENDPOINT", ""),
		InputSampleRate:  envIntOr("WILDVOICE_INPUT_SAMPLE_RATE", 16000),
		OutputSampleRate: envIntOr("WILDVOICE_OUTPUT_SAMPLE_RATE", 24000),
		CaptureBlockSize: envIntOr("WILDVOICE_CAPTURE_BLOCK_SIZE", 4096),
		LogLevel:         strings.ToLower(envOr("WILDVOICE_LOG_LEVEL", "info")),

		AnimalName:           envOr("WILDVOICE_ANIMAL_NAME", ""),
		AnimalScientificName: envOr("WILDVOICE_ANIMAL_SCIENTIFIC_NAME", ""),
		AnimalDescription:    envOr("WILDVOICE_ANIMAL_DESCRIPTION", ""),
		AnimalHabitat:        envOr("WILDVOICE_ANIMAL_HABITAT", ""),
		AnimalDiet:           envOr("WILDVOICE_ANIMAL_DIET", ""),
		AnimalFunFact:        envOr("WILDVOICE_ANIMAL_FUN_FACT", ""),
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("config: an API key is required (set WILDVOICE_API_KEY or GEMINI_API_KEY)")
	}
	switch cfg.Transport {
	case TransportGemini, TransportBidiWS:
	default:
		return Config{}, fmt.Errorf("config: unknown transport %q (want gemini or bidiws)", cfg.Transport)
	}
	if cfg.InputSampleRate <= 0 || cfg.OutputSampleRate <= 0 {
		return Config{}, fmt.Errorf("config: sample rates must be positive")
	}
	if cfg.CaptureBlockSize <= 0 {
		return Config{}, fmt.Errorf("config: capture block size must be positive")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
