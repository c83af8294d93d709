// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable persistence for chat history, per-chat
// message lists, and app settings.
package store

import (
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/jeranaias/chatrun-tui/internal/model"
)

// Fixed document keys on the KV substrate.
const (
	keyChatHistory  = "chatHistory"
	keyChatMessages = "chatMessages"
	keySettings     = "settings"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists chats, messages, and settings over a KV substrate.
//
// All methods are total: they never panic and never return an error. A false
// return means the operation could not complete; details go to the
// diagnostic logger.
type Store struct {
	kv  KV
	log *log.Logger
}

// New creates a Store over kv. A nil logger discards diagnostics.
func New(kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{kv: kv, log: logger}
}

// Close releases the underlying substrate.
func (s *Store) Close() error {
	return s.kv.Close()
}

// save serializes value under key. The prior stored value is untouched on
// failure.
func (s *Store) save(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Printf("save %s: marshal failed: %v", key, err)
		return false
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		s.log.Printf("save %s: %v", key, err)
		return false
	}
	return true
}

// load deserializes key into out, reporting whether out was populated. On a
// missing key, malformed content, or substrate error the caller keeps its
// fallback value.
func (s *Store) load(key string, out any) bool {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		s.log.Printf("load %s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Printf("load %s: corrupt document: %v", key, err)
		return false
	}
	return true
}

// =============================================================================
// CHAT HISTORY
// =============================================================================

// SaveChatHistory stores the full history list.
func (s *Store) SaveChatHistory(chats []model.ChatRecord) bool {
	if chats == nil {
		chats = []model.ChatRecord{}
	}
	return s.save(keyChatHistory, chats)
}

// LoadChatHistory returns the history list, most-recent-first. Missing or
// corrupt data yields an empty list.
func (s *Store) LoadChatHistory() []model.ChatRecord {
	var chats []model.ChatRecord
	if !s.load(keyChatHistory, &chats) {
		return []model.ChatRecord{}
	}
	for i := range chats {
		chats[i].Normalize()
	}
	return chats
}

// AddChat prepends chat to the history after removing any existing entry
// with the same id. Re-adding an existing chat moves it to the front with
// the new fields.
func (s *Store) AddChat(chat model.ChatRecord) bool {
	history := s.LoadChatHistory()
	updated := make([]model.ChatRecord, 0, len(history)+1)
	updated = append(updated, chat)
	for _, c := range history {
		if c.ID != chat.ID {
			updated = append(updated, c)
		}
	}
	return s.SaveChatHistory(updated)
}

// ChatPatch holds the mutable ChatRecord fields for UpdateChat. Nil fields
// are left unchanged.
type ChatPatch struct {
	Title          *string
	Preview        *string
	TimestampLabel *string
	LastMessageAt  *time.Time
}

// UpdateChat merges patch into the chat with the given id. A missing id is
// a successful no-op.
func (s *Store) UpdateChat(id string, patch ChatPatch) bool {
	history := s.LoadChatHistory()
	changed := false
	for i := range history {
		if history[i].ID != id {
			continue
		}
		if patch.Title != nil {
			history[i].Title = *patch.Title
		}
		if patch.Preview != nil {
			history[i].Preview = *patch.Preview
		}
		if patch.TimestampLabel != nil {
			history[i].TimestampLabel = *patch.TimestampLabel
		}
		if patch.LastMessageAt != nil {
			t := *patch.LastMessageAt
			history[i].LastMessageAt = &t
		}
		changed = true
		break
	}
	if !changed {
		return true
	}
	return s.SaveChatHistory(history)
}

// DeleteChat removes the history entry and the chat's message list. Both
// deletions are attempted even if the first fails; the result is true only
// when both succeed.
func (s *Store) DeleteChat(id string) bool {
	history := s.LoadChatHistory()
	remaining := make([]model.ChatRecord, 0, len(history))
	for _, c := range history {
		if c.ID != id {
			remaining = append(remaining, c)
		}
	}
	historyOK := s.SaveChatHistory(remaining)
	messagesOK := s.DeleteMessages(id)
	return historyOK && messagesOK
}

// ClearAll removes every stored document. Clearing continues past
// individual failures.
func (s *Store) ClearAll() bool {
	ok := true
	for _, key := range []string{keyChatHistory, keyChatMessages, keySettings} {
		if err := s.kv.Delete(key); err != nil {
			s.log.Printf("clear %s: %v", key, err)
			ok = false
		}
	}
	return ok
}

// =============================================================================
// MESSAGES
// =============================================================================

// loadMessageMap reads the full chat-id -> message-list map.
func (s *Store) loadMessageMap() map[string][]model.Message {
	msgs := make(map[string][]model.Message)
	s.load(keyChatMessages, &msgs)
	if msgs == nil {
		msgs = make(map[string][]model.Message)
	}
	return msgs
}

// SaveMessages replaces the message list for a chat.
func (s *Store) SaveMessages(chatID string, messages []model.Message) bool {
	if messages == nil {
		messages = []model.Message{}
	}
	msgs := s.loadMessageMap()
	msgs[chatID] = messages
	return s.save(keyChatMessages, msgs)
}

// LoadMessages returns the message list for a chat, in conversation order.
// Missing or corrupt data yields an empty list. Messages stored without a
// timestamp get the current instant.
func (s *Store) LoadMessages(chatID string) []model.Message {
	msgs := s.loadMessageMap()
	list := msgs[chatID]
	if list == nil {
		return []model.Message{}
	}
	for i := range list {
		list[i].Normalize()
	}
	return list
}

// AddMessage appends a message to a chat's list.
func (s *Store) AddMessage(chatID string, msg model.Message) bool {
	msgs := s.loadMessageMap()
	msgs[chatID] = append(msgs[chatID], msg)
	return s.save(keyChatMessages, msgs)
}

// UpdateMessage replaces the message with msg.ID in a chat's list. A
// missing message is a successful no-op.
func (s *Store) UpdateMessage(chatID string, msg model.Message) bool {
	msgs := s.loadMessageMap()
	list := msgs[chatID]
	changed := false
	for i := range list {
		if list[i].ID == msg.ID {
			list[i] = msg
			changed = true
			break
		}
	}
	if !changed {
		return true
	}
	msgs[chatID] = list
	return s.save(keyChatMessages, msgs)
}

// DeleteMessages removes a chat's message list from the map.
func (s *Store) DeleteMessages(chatID string) bool {
	msgs := s.loadMessageMap()
	if _, ok := msgs[chatID]; !ok {
		return true
	}
	delete(msgs, chatID)
	return s.save(keyChatMessages, msgs)
}

// =============================================================================
// SETTINGS
// =============================================================================

// SaveSettings stores the app settings document.
func (s *Store) SaveSettings(settings model.Settings) bool {
	return s.save(keySettings, settings)
}

// LoadSettings returns stored settings, or defaults when missing or
// corrupt. A SelectedChatID that no longer matches a history entry is
// cleared rather than surfaced dangling.
func (s *Store) LoadSettings() model.Settings {
	settings := model.DefaultSettings()
	s.load(keySettings, &settings)
	settings.Normalize()

	if settings.SelectedChatID != "" {
		found := false
		for _, c := range s.LoadChatHistory() {
			if c.ID == settings.SelectedChatID {
				found = true
				break
			}
		}
		if !found {
			settings.SelectedChatID = ""
		}
	}
	return settings
}
