package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.darius/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	ServerURL      string `toml:"server_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	Search SearchConfig `toml:"search"`
	Speech SpeechConfig `toml:"speech"`
}

// SearchConfig holds web search defaults.
type SearchConfig struct {
	DefaultResults int `toml:"default_results"`
}

// SpeechConfig holds speech synthesis preferences sent to the voice endpoint.
type SpeechConfig struct {
	Voice        string  `toml:"voice"`
	Speed        int     `toml:"speed"`
	Pitch        float64 `toml:"pitch"`
	Volume       float64 `toml:"volume"`
	OutputFormat string  `toml:"output_format"`
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		ServerURL:      "http://localhost:8000/api/v1",
		TimeoutSeconds: 30,
		Search:         SearchConfig{DefaultResults: 3},
		Speech: SpeechConfig{
			Voice:        "default",
			Speed:        150,
			Pitch:        1.0,
			Volume:       0.8,
			OutputFormat: "mp3",
		},
	}
}

// Timeout returns the request timeout as a duration, falling back to the
// default when the configured value is not positive.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Duration(Default().TimeoutSeconds) * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads config from the given path, layering file values over defaults.
// Returns defaults and the error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
