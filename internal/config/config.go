// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatrun.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatrun-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatrun configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Chat    ChatConfig    `toml:"chat"`
	UI      UIConfig      `toml:"ui"`
	Storage StorageConfig `toml:"storage"`

	// Models holds per-model generation parameter defaults, keyed by
	// model name. Per-call overrides still win over these.
	Models map[string]GenerationParams `toml:"models"`
}

// ServerConfig contains Ollama server settings.
type ServerConfig struct {
	// URL of the Ollama server
	URL string `toml:"url"`
	// DefaultModel to chat with when none is named
	DefaultModel string `toml:"default_model"`
	// TimeoutSecs for non-streaming requests
	TimeoutSecs int `toml:"timeout_secs"`
	// AutoStart spawns a local Ollama server when none is reachable
	AutoStart bool `toml:"auto_start"`
}

// ChatConfig contains chat behavior settings.
type ChatConfig struct {
	// SystemPrompt injected when the conversation has no system message.
	// Empty string keeps the built-in reasoning/answer instruction.
	SystemPrompt string `toml:"system_prompt"`
	// ShowThinking displays the model's reasoning while it streams
	ShowThinking bool `toml:"show_thinking"`
}

// UIConfig contains display settings.
type UIConfig struct {
	// Theme is "dark", "light", or "auto" (detect from the terminal)
	Theme string `toml:"theme"`
	// Markdown renders assistant answers as formatted markdown
	Markdown bool `toml:"markdown"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database location. Empty uses
	// ~/.chatrun/chats.db.
	DBPath string `toml:"db_path"`
}

// GenerationParams are per-model defaults for inference parameters.
// Zero-valued fields defer to the built-in defaults.
type GenerationParams struct {
	Temperature   float64 `toml:"temperature"`
	TopK          int     `toml:"top_k"`
	TopP          float64 `toml:"top_p"`
	RepeatPenalty float64 `toml:"repeat_penalty"`
	NumCtx        int     `toml:"num_ctx"`
	MaxTokens     int     `toml:"max_tokens"`
}

// Timeout returns the request timeout as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:          "http://127.0.0.1:11434",
			DefaultModel: "llama3.2",
			TimeoutSecs:  30,
			AutoStart:    true,
		},
		Chat: ChatConfig{
			ShowThinking: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
		},
		Models: map[string]GenerationParams{},
	}
}

// fillDefaults replaces zero values with the built-in defaults after a
// partial file load.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.URL == "" {
		cfg.Server.URL = def.Server.URL
	}
	if cfg.Server.DefaultModel == "" {
		cfg.Server.DefaultModel = def.Server.DefaultModel
	}
	if cfg.Server.TimeoutSecs <= 0 {
		cfg.Server.TimeoutSecs = def.Server.TimeoutSecs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = def.UI.Theme
	}
	if cfg.Models == nil {
		cfg.Models = map[string]GenerationParams{}
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the chatrun configuration directory (~/.chatrun).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatrun"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, fills defaults, applies environment
// overrides, and validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the standard path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML. The write is atomic so a
// crash cannot leave a half-written config.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatrun configuration file\n")
	buf.WriteString("# Generated by chatrun - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid URL %q", c.Server.URL),
		})
	}

	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Server.TimeoutSecs),
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be dark, light, or auto", c.UI.Theme),
		})
	}

	for name, params := range c.Models {
		if params.Temperature < 0 || params.Temperature > 2 {
			errs = append(errs, ValidationError{
				Field:   "models." + name + ".temperature",
				Message: "must be between 0 and 2",
			})
		}
		if params.TopP < 0 || params.TopP > 1 {
			errs = append(errs, ValidationError{
				Field:   "models." + name + ".top_p",
				Message: "must be between 0 and 1",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATRUN_URL: overrides server.url
//   - CHATRUN_MODEL: overrides server.default_model
//   - CHATRUN_THEME: overrides ui.theme
//   - CHATRUN_DB: overrides storage.db_path
//   - CHATRUN_NO_AUTOSTART: set to "1" or "true" to disable server autostart
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHATRUN_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("CHATRUN_MODEL"); v != "" {
		c.Server.DefaultModel = v
	}
	if v := os.Getenv("CHATRUN_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("CHATRUN_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("CHATRUN_NO_AUTOSTART"); v != "" {
		if v == "1" || strings.EqualFold(v, "true") {
			c.Server.AutoStart = false
		}
	}
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalConfig *Config
	globalOnce   sync.Once
)

// Global returns the process-wide configuration, loading it on first use.
// Load failures fall back to defaults. Only the CLI edge should use this;
// core components take an explicit *Config.
func Global() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})
	return globalConfig
}
