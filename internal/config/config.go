// Package config reads the quiz show's process configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultQuizURL      = "https://quizshow.ference.ai/api"
	DefaultVoice        = "echo"
	DefaultAudioBackend = AudioBackendMiniaudio
)

type AudioBackend string

const (
	AudioBackendMiniaudio AudioBackend = "miniaudio"
	AudioBackendPortaudio AudioBackend = "portaudio"
	AudioBackendNone      AudioBackend = "none"
)

var (
	ErrMissingCredentials  = errors.New("config: OPENAI_API_KEY or REALTIME_RELAY_URL is required")
	ErrMissingPIN          = errors.New("config: QUIZ_PIN is required")
	ErrUnknownAudioBackend = errors.New("config: unknown audio backend")
)

type Config struct {
	APIKey       string
	RelayURL     string
	Model        string
	QuizURL      string
	PIN          string
	Voice        string
	AudioBackend AudioBackend
}

// Load reads the given .env files (".env" when none are given) into the
// process environment and builds the configuration from it. Missing files are
// not an error and variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		RelayURL:     os.Getenv("REALTIME_RELAY_URL"),
		Model:        os.Getenv("REALTIME_MODEL"),
		QuizURL:      envOr("QUIZ_API_URL", DefaultQuizURL),
		PIN:          os.Getenv("QUIZ_PIN"),
		Voice:        envOr("QUIZ_VOICE", DefaultVoice),
		AudioBackend: AudioBackend(strings.ToLower(envOr("QUIZ_AUDIO_BACKEND", string(DefaultAudioBackend)))),
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" && c.RelayURL == "" {
		return ErrMissingCredentials
	}
	if c.PIN == "" {
		return ErrMissingPIN
	}
	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio, AudioBackendNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAudioBackend, c.AudioBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
