// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable persistence for chat history, per-chat
// message lists, and app settings.
package store

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/chatrun-tui/internal/model"
)

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// exportDocument is the on-disk export format.
type exportDocument struct {
	ChatHistory     []model.ChatRecord         `json:"chatHistory"`
	ChatMessages    map[string][]model.Message `json:"chatMessages"`
	Settings        model.Settings             `json:"settings"`
	ExportTimestamp time.Time                  `json:"exportTimestamp"`
}

// importDocument defers section parsing so one malformed section cannot
// poison the others.
type importDocument struct {
	ChatHistory  json.RawMessage `json:"chatHistory"`
	ChatMessages json.RawMessage `json:"chatMessages"`
	Settings     json.RawMessage `json:"settings"`
}

// ExportData serializes all three documents into a single JSON export.
func (s *Store) ExportData() ([]byte, bool) {
	doc := exportDocument{
		ChatHistory:     s.LoadChatHistory(),
		ChatMessages:    s.loadMessageMap(),
		Settings:        s.LoadSettings(),
		ExportTimestamp: time.Now(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.log.Printf("export: marshal failed: %v", err)
		return nil, false
	}
	return data, true
}

// ImportData applies an exported document. Each section is validated and
// applied independently: a malformed section is skipped with a diagnostic
// while the valid sections still land. A document that is not JSON at all
// fails the whole import.
func (s *Store) ImportData(data []byte) bool {
	var doc importDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Printf("import: malformed document: %v", err)
		return false
	}

	ok := true

	if len(doc.ChatHistory) > 0 {
		var history []model.ChatRecord
		if err := json.Unmarshal(doc.ChatHistory, &history); err != nil {
			s.log.Printf("import: malformed chatHistory section: %v", err)
			ok = false
		} else if !s.SaveChatHistory(history) {
			ok = false
		}
	}

	if len(doc.ChatMessages) > 0 {
		var msgs map[string][]model.Message
		if err := json.Unmarshal(doc.ChatMessages, &msgs); err != nil {
			s.log.Printf("import: malformed chatMessages section: %v", err)
			ok = false
		} else if !s.save(keyChatMessages, msgs) {
			ok = false
		}
	}

	if len(doc.Settings) > 0 {
		var settings model.Settings
		if err := json.Unmarshal(doc.Settings, &settings); err != nil {
			s.log.Printf("import: malformed settings section: %v", err)
			ok = false
		} else if !s.SaveSettings(settings) {
			ok = false
		}
	}

	return ok
}
