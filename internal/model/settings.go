// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import "time"

// =============================================================================
// SETTINGS TYPE
// =============================================================================

// Theme selects the display theme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Settings is the singleton app settings document. One instance exists per
// installation.
type Settings struct {
	// SelectedChatID references a ChatRecord, or is empty for no
	// selection. A dangling reference is tolerated and treated as empty
	// on load.
	SelectedChatID string `json:"selectedChatId,omitempty"`

	Theme Theme `json:"theme"`

	LastActive time.Time `json:"lastActiveTimestamp"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		Theme:      ThemeDark,
		LastActive: time.Now(),
	}
}

// Normalize fills fields a stored settings document may be missing.
func (s *Settings) Normalize() {
	if s.Theme != ThemeDark && s.Theme != ThemeLight {
		s.Theme = ThemeDark
	}
	if s.LastActive.IsZero() {
		s.LastActive = time.Now()
	}
}
