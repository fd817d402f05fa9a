package config

import "testing"

var voiceEnvKeys = []string{
	"WILDVOICE_MODEL",
	"WILDVOICE_API_KEY",
	"WILDVOICE_TRANSPORT",
	"WILDVOICE_ENDPOINT",
	"WILDVOICE_INPUT_SAMPLE_RATE",
	"WILDVOICE_OUTPUT_SAMPLE_RATE",
	"WILDVOICE_CAPTURE_BLOCK_SIZE",
	"WILDVOICE_LOG_LEVEL",
	"WILDVOICE_ANIMAL_NAME",
	"WILDVOICE_ANIMAL_SCIENTIFIC_NAME",
	"WILDVOICE_ANIMAL_DESCRIPTION",
	"WILDVOICE_ANIMAL_HABITAT",
	"WILDVOICE_ANIMAL_DIET",
	"WILDVOICE_ANIMAL_FUN_FACT",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
}

func clearVoiceEnv(t *testing.T) {
	t.Helper()
	for _, k := range voiceEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearVoiceEnv(t)
	t.Setenv("WILDVOICE_API_KEY", "k")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Model != DefaultModel {
		t.Fatalf("Model=%q", cfg.Model)
	}
	if cfg.Transport != TransportGemini {
		t.Fatalf("Transport=%q, want gemini", cfg.Transport)
	}
	if cfg.InputSampleRate != 16000 || cfg.OutputSampleRate != 24000 {
		t.Fatalf("sample rates=%d/%d, want 16000/24000", cfg.InputSampleRate, cfg.OutputSampleRate)
	}
	if cfg.CaptureBlockSize != 4096 {
		t.Fatalf("CaptureBlockSize=%d", cfg.CaptureBlockSize)
	}
}

func TestLoadFromEnv_RequiresAPIKey(t *testing.T) {
	clearVoiceEnv(t)
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected an error without any API key")
	}
}

func TestLoadFromEnv_FallsBackToGeminiKey(t *testing.T) {
	clearVoiceEnv(t)
	t.Setenv("GEMINI_API_KEY", "gk")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIKey != "gk" {
		t.Fatalf("APIKey=%q, want gk", cfg.APIKey)
	}
}

func TestLoadFromEnv_ExplicitKeyWinsOverFallback(t *testing.T) {
	clearVoiceEnv(t)
	t.Setenv("WILDVOICE_API_KEY", "wk")
	t.Setenv("GEMINI_API_KEY", "gk")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIKey != "wk" {
		t.Fatalf("APIKey=%q, want wk", cfg.APIKey)
	}
}

func TestLoadFromEnv_RejectsUnknownTransport(t *testing.T) {
	clearVoiceEnv(t)
	t.Setenv("WILDVOICE_API_KEY", "k")
	t.Setenv("WILDVOICE_TRANSPORT", "carrier-pigeon")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected an error for an unknown transport")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearVoiceEnv(t)
	t.Setenv("WILDVOICE_API_KEY", "k")
	t.Setenv("WILDVOICE_MODEL", "models/other-live")
	t.Setenv("WILDVOICE_TRANSPORT", "BIDIWS")
	t.Setenv("WILDVOICE_CAPTURE_BLOCK_SIZE", "2048")
	t.Setenv("WILDVOICE_ANIMAL_NAME", "okapi")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Model != "models/other-live" {
		t.Fatalf("Model=%q", cfg.Model)
	}
	if cfg.Transport != TransportBidiWS {
		t.Fatalf("Transport=%q, want bidiws", cfg.Transport)
	}
	if cfg.CaptureBlockSize != 2048 {
		t.Fatalf("CaptureBlockSize=%d, want 2048", cfg.CaptureBlockSize)
	}
	if cfg.AnimalName != "okapi" {
		t.Fatalf("AnimalName=%q", cfg.AnimalName)
	}
}

func TestLoadFromEnv_InvalidIntFallsBack(t *testing.T) {
	clearVoiceEnv(t)
	t.Setenv("WILDVOICE_API_KEY", "k")
	t.Setenv("WILDVOICE_INPUT_SAMPLE_RATE", "not-a-number")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.InputSampleRate != 16000 {
		t.Fatalf("InputSampleRate=%d, want default 16000", cfg.InputSampleRate)
	}
}
