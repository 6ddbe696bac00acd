// Package config loads and stores the CLI configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config is the persisted CLI configuration. Zero values fall back to
// the defaults in Default.
type Config struct {
	// ModelPath points at the acoustic model directory.
	ModelPath string `yaml:"model_path"`
	// SpeakerModelPath points at the voice embedding model directory.
	// Empty disables speaker identification.
	SpeakerModelPath string `yaml:"speaker_model_path,omitempty"`

	// Mode is the default capture source: mic, loopback, both or file.
	Mode string `yaml:"mode"`
	// Format is the default export format: txt or srt.
	Format string `yaml:"format"`

	// ProfileDir is where known speaker profiles are persisted.
	// Empty keeps profiles in memory only.
	ProfileDir string `yaml:"profile_dir,omitempty"`

	// Listen enables the live event feed on the given address,
	// e.g. "localhost:8137". Empty disables it.
	Listen string `yaml:"listen,omitempty"`

	OpenAI OpenAIConfig `yaml:"openai,omitempty"`
}

// OpenAIConfig configures the optional transcript summary step.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

func Default() Config {
	return Config{
		Mode:   "mic",
		Format: "txt",
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Join(dir, "voxtail", "config.yaml"), nil
}

// Load reads the config at path. A missing file returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Mode == "" {
		cfg.Mode = "mic"
	}
	if cfg.Format == "" {
		cfg.Format = "txt"
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
