// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for druva.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.druva/config.toml
//   - ~/.druva/config.json
//   - Built-in defaults
//
// A missing Groq API key is a recoverable condition, not a load error: the
// stream client surfaces it as a message to the user on first use.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/druva-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete druva configuration.
type Config struct {
	// Groq API configuration
	Groq GroqConfig `toml:"groq" json:"groq"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Stream configuration
	Stream StreamConfig `toml:"stream" json:"stream"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// GroqConfig contains settings for the Groq completion endpoint.
type GroqConfig struct {
	// APIKey is the Groq API key. The GROQ_API_KEY environment variable
	// overrides this value.
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL is the API base URL (OpenAI-compatible).
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the completion model identifier.
	Model string `toml:"model" json:"model"`
	// Temperature is the sampling temperature.
	Temperature float64 `toml:"temperature" json:"temperature"`
}

// StorageConfig selects and locates the local persistence backend.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend" json:"backend"`
	// Path is the state directory (file backend) or database file (sqlite
	// backend). Empty means the default under ~/.druva.
	Path string `toml:"path" json:"path"`
}

// StreamConfig tunes how streamed fragments are folded into the view.
type StreamConfig struct {
	// TypingDelayMs is the per-fragment pacing delay in milliseconds.
	// Zero disables pacing.
	TypingDelayMs int `toml:"typing_delay_ms" json:"typing_delay_ms"`
}

// UIConfig contains presentation preferences.
type UIConfig struct {
	// Theme is "dark", "light", or "auto" (detect from the terminal).
	Theme string `toml:"theme" json:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Groq: GroqConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.7,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Stream: StreamConfig{
			TypingDelayMs: 20,
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the druva configuration directory (~/.druva).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".druva"), nil
}

// ConfigPathTOML returns the TOML config file path.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the JSON config file path.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration with the precedence TOML > JSON > defaults, then
// applies environment overrides and validates. A missing file is not an
// error; a present-but-broken file is.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, err
			}
			return finish(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, err
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from an explicit file, choosing the
// format by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	switch filepath.Ext(path) {
	case ".toml":
		err = LoadTOML(cfg, path)
	case ".json":
		err = LoadJSON(cfg, path)
	default:
		err = fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML config: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON config: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Groq.APIKey = key
	}
	if url := os.Getenv("DRUVA_BASE_URL"); url != "" {
		c.Groq.BaseURL = url
	}
	if model := os.Getenv("DRUVA_MODEL"); model != "" {
		c.Groq.Model = model
	}
}

// SetDefaults fills any zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = def.Groq.BaseURL
	}
	if c.Groq.Model == "" {
		c.Groq.Model = def.Groq.Model
	}
	if c.Groq.Temperature == 0 {
		c.Groq.Temperature = def.Groq.Temperature
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// Validate checks the configuration for inconsistencies. The API key is
// deliberately not required here.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui theme must be \"dark\", \"light\" or \"auto\", got %q", c.UI.Theme)
	}
	if c.Groq.Temperature < 0 || c.Groq.Temperature > 2 {
		return fmt.Errorf("groq temperature must be in [0, 2], got %v", c.Groq.Temperature)
	}
	if c.Stream.TypingDelayMs < 0 || c.Stream.TypingDelayMs > 1000 {
		return fmt.Errorf("stream typing_delay_ms must be in [0, 1000], got %d", c.Stream.TypingDelayMs)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the TOML path atomically.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML to path.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode TOML config: %w", err)
	}
	// Config may hold the API key, keep it owner-only.
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// Load failures fall back to defaults with a warning.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg, _ = finish(Default())
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}
