// Package config loads askvox settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kkkz76/askvox/core/conversation"
)

const (
	AudioBackendMiniaudio = "miniaudio"
	AudioBackendPortaudio = "portaudio"
)

var (
	ErrMissingGroqAPIKey     = errors.New("GROQ_API_KEY is not set")
	ErrMissingDeepgramAPIKey = errors.New("DEEPGRAM_API_KEY is not set")
	ErrUnknownAudioBackend   = errors.New("unknown audio backend")
	ErrUnknownTag            = errors.New("unknown tag")
)

type Config struct {
	GroqAPIKey   string
	GroqModel    string
	GroqEndpoint string

	DeepgramAPIKey string
	DeepgramModel  string
	Language       string

	AudioBackend string
	SampleRate   int

	VADThreshold    float64
	TrailingSilence time.Duration
	NoSpeechTimeout time.Duration // 0 disables

	SleepDelay    time.Duration
	HistoryLimit  int
	Greeting      string
	Tag           string
	ListenOnStart bool
}

// Load reads settings from the environment after applying envFiles, ".env"
// when none are given. Variables already set win over file values and a
// missing file is skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return &Config{
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GroqModel:    getEnv("ASKVOX_GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqEndpoint: getEnv("ASKVOX_GROQ_ENDPOINT", ""),

		DeepgramAPIKey: getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:  getEnv("ASKVOX_DEEPGRAM_MODEL", "nova-3"),
		Language:       getEnv("ASKVOX_LANGUAGE", "en-US"),

		AudioBackend: strings.ToLower(getEnv("ASKVOX_AUDIO_BACKEND", AudioBackendMiniaudio)),
		SampleRate:   getEnvInt("ASKVOX_SAMPLE_RATE", 16000),

		VADThreshold:    getEnvFloat("ASKVOX_VAD_THRESHOLD", 10),
		TrailingSilence: getEnvDuration("ASKVOX_TRAILING_SILENCE", 5*time.Second),
		NoSpeechTimeout: getEnvDuration("ASKVOX_NO_SPEECH_TIMEOUT", 0),

		SleepDelay:    getEnvDuration("ASKVOX_SLEEP_DELAY", 3*time.Second),
		HistoryLimit:  getEnvInt("ASKVOX_HISTORY_LIMIT", 10),
		Greeting:      getEnv("ASKVOX_GREETING", "Hello! How can I assist you today?"),
		Tag:           getEnv("ASKVOX_TAG", ""),
		ListenOnStart: getEnvBool("ASKVOX_LISTEN_ON_START", false),
	}, nil
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var errs error
	if c.GroqAPIKey == "" {
		errs = errors.Join(errs, ErrMissingGroqAPIKey)
	}
	if c.DeepgramAPIKey == "" {
		errs = errors.Join(errs, ErrMissingDeepgramAPIKey)
	}
	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio:
	default:
		errs = errors.Join(errs, fmt.Errorf("%w: %q", ErrUnknownAudioBackend, c.AudioBackend))
	}
	if c.Tag != "" && !conversation.IsKnownTag(c.Tag) {
		errs = errors.Join(errs, fmt.Errorf("%w: %q", ErrUnknownTag, c.Tag))
	}
	return errs
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
