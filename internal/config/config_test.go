package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kkkz76/askvox/core/conversation"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"GROQ_API_KEY", "DEEPGRAM_API_KEY", "ASKVOX_AUDIO_BACKEND", "ASKVOX_TRAILING_SILENCE", "ASKVOX_VAD_THRESHOLD"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.AudioBackend != AudioBackendMiniaudio {
		t.Fatalf("expected miniaudio backend by default, got %q", cfg.AudioBackend)
	}
	if cfg.TrailingSilence != 5*time.Second || cfg.VADThreshold != 10 {
		t.Fatalf("unexpected detector defaults %+v", cfg)
	}
	if cfg.SleepDelay != 3*time.Second {
		t.Fatalf("expected 3s sleep delay, got %v", cfg.SleepDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq")
	t.Setenv("DEEPGRAM_API_KEY", "deepgram")
	t.Setenv("ASKVOX_AUDIO_BACKEND", "PortAudio")
	t.Setenv("ASKVOX_TRAILING_SILENCE", "1500ms")
	t.Setenv("ASKVOX_NO_SPEECH_TIMEOUT", "8s")
	t.Setenv("ASKVOX_VAD_THRESHOLD", "12.5")
	t.Setenv("ASKVOX_HISTORY_LIMIT", "not a number")
	t.Setenv("ASKVOX_LISTEN_ON_START", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.AudioBackend != AudioBackendPortaudio {
		t.Fatalf("expected portaudio backend, got %q", cfg.AudioBackend)
	}
	if cfg.TrailingSilence != 1500*time.Millisecond || cfg.NoSpeechTimeout != 8*time.Second {
		t.Fatalf("unexpected durations %v %v", cfg.TrailingSilence, cfg.NoSpeechTimeout)
	}
	if cfg.VADThreshold != 12.5 {
		t.Fatalf("expected threshold 12.5, got %v", cfg.VADThreshold)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("expected invalid history limit to fall back to 10, got %d", cfg.HistoryLimit)
	}
	if !cfg.ListenOnStart {
		t.Fatalf("expected listen on start")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{AudioBackend: "pulse", Tag: "podcast"}
	err := cfg.Validate()
	for _, want := range []error{ErrMissingGroqAPIKey, ErrMissingDeepgramAPIKey, ErrUnknownAudioBackend, ErrUnknownTag} {
		if !errors.Is(err, want) {
			t.Fatalf("expected %v in %v", want, err)
		}
	}
}

func TestValidateAcceptsKnownTag(t *testing.T) {
	cfg := &Config{GroqAPIKey: "groq", DeepgramAPIKey: "deepgram", AudioBackend: AudioBackendMiniaudio, Tag: conversation.TagImage}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected known tag to be valid, got %v", err)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	// Unset after t.Setenv so the file can fill them in and cleanup restores them.
	for _, key := range []string{"GROQ_API_KEY", "DEEPGRAM_API_KEY", "ASKVOX_SLEEP_DELAY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("DEEPGRAM_API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	content := "GROQ_API_KEY=from-file\nDEEPGRAM_API_KEY=from-file\nASKVOX_SLEEP_DELAY=10s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.GroqAPIKey != "from-file" {
		t.Fatalf("expected key from env file, got %q", cfg.GroqAPIKey)
	}
	if cfg.DeepgramAPIKey != "from-env" {
		t.Fatalf("expected environment to win over env file, got %q", cfg.DeepgramAPIKey)
	}
	if cfg.SleepDelay != 10*time.Second {
		t.Fatalf("expected sleep delay from env file, got %v", cfg.SleepDelay)
	}
}

func TestLoadSkipsMissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing env file to be skipped, got %v", err)
	}
}
