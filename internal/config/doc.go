// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatrun.
//
// Configuration is a TOML file at ~/.chatrun/config.toml with sensible
// defaults, CHATRUN_* environment variable overrides, and validation.
//
// Precedence, lowest to highest:
//   - Built-in defaults
//   - ~/.chatrun/config.toml
//   - Environment variables
//
// A Watcher can re-load the file on change for long-running sessions.
package config
