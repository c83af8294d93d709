// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable persistence for chat history, per-chat
// message lists, and app settings.
package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatrun-tui/internal/model"
)

// failingKV simulates a substrate that errors on configured operations,
// like a full quota or a corrupt backing file.
type failingKV struct {
	*MemKV
	failSet    bool
	failDelete bool
}

func (f *failingKV) Set(key, value string) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.MemKV.Set(key, value)
}

func (f *failingKV) Delete(key string) error {
	if f.failDelete {
		return errors.New("substrate failure")
	}
	return f.MemKV.Delete(key)
}

func newTestStore() *Store {
	return New(NewMemKV(), nil)
}

// =============================================================================
// CHAT HISTORY TESTS
// =============================================================================

func TestAddChat_MostRecentFirst(t *testing.T) {
	s := newTestStore()

	first := model.NewChatRecord("first")
	second := model.NewChatRecord("second")
	require.True(t, s.AddChat(first))
	require.True(t, s.AddChat(second))

	history := s.LoadChatHistory()
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestAddChat_UpsertMovesToFront(t *testing.T) {
	s := newTestStore()

	chat := model.NewChatRecord("original")
	other := model.NewChatRecord("other")
	require.True(t, s.AddChat(chat))
	require.True(t, s.AddChat(other))

	chat.Title = "renamed"
	require.True(t, s.AddChat(chat))

	history := s.LoadChatHistory()
	require.Len(t, history, 2)
	assert.Equal(t, chat.ID, history[0].ID)
	assert.Equal(t, "renamed", history[0].Title)
}

func TestUpdateChat_MergesPatch(t *testing.T) {
	s := newTestStore()

	chat := model.NewChatRecord("hello")
	require.True(t, s.AddChat(chat))

	preview := "updated preview"
	now := time.Now()
	require.True(t, s.UpdateChat(chat.ID, ChatPatch{
		Preview:       &preview,
		LastMessageAt: &now,
	}))

	history := s.LoadChatHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "updated preview", history[0].Preview)
	assert.Equal(t, chat.Title, history[0].Title, "unpatched field preserved")
	require.NotNil(t, history[0].LastMessageAt)
}

func TestUpdateChat_MissingIDIsNoOp(t *testing.T) {
	s := newTestStore()
	title := "x"
	assert.True(t, s.UpdateChat("no-such-id", ChatPatch{Title: &title}))
	assert.Empty(t, s.LoadChatHistory())
}

func TestDeleteChat_CascadesToMessages(t *testing.T) {
	s := newTestStore()

	chat := model.NewChatRecord("to delete")
	require.True(t, s.AddChat(chat))
	require.True(t, s.AddMessage(chat.ID, model.NewUserMessage("hi")))
	require.True(t, s.AddMessage(chat.ID, model.NewAssistantMessage("hello")))

	require.True(t, s.DeleteChat(chat.ID))

	assert.Empty(t, s.LoadChatHistory())
	assert.Empty(t, s.LoadMessages(chat.ID))
}

func TestDeleteChat_AttemptsBothOnFailure(t *testing.T) {
	kv := &failingKV{MemKV: NewMemKV()}
	s := New(kv, nil)

	chat := model.NewChatRecord("doomed")
	require.True(t, s.AddChat(chat))
	require.True(t, s.AddMessage(chat.ID, model.NewUserMessage("hi")))

	kv.failSet = true
	assert.False(t, s.DeleteChat(chat.ID))

	// Prior data intact: failed writes must not destroy stored values.
	kv.failSet = false
	assert.Len(t, s.LoadChatHistory(), 1)
	assert.Len(t, s.LoadMessages(chat.ID), 1)
}

func TestClearAll(t *testing.T) {
	s := newTestStore()

	chat := model.NewChatRecord("a")
	require.True(t, s.AddChat(chat))
	require.True(t, s.AddMessage(chat.ID, model.NewUserMessage("hi")))
	require.True(t, s.SaveSettings(model.DefaultSettings()))

	require.True(t, s.ClearAll())
	assert.Empty(t, s.LoadChatHistory())
	assert.Empty(t, s.LoadMessages(chat.ID))
}

func TestClearAll_ContinuesPastFailure(t *testing.T) {
	kv := &failingKV{MemKV: NewMemKV(), failDelete: true}
	s := New(kv, nil)
	assert.False(t, s.ClearAll())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessages_AddAndLoadOrder(t *testing.T) {
	s := newTestStore()

	require.True(t, s.AddMessage("c1", model.NewUserMessage("one")))
	require.True(t, s.AddMessage("c1", model.NewAssistantMessage("two")))
	require.True(t, s.AddMessage("c2", model.NewUserMessage("other chat")))

	list := s.LoadMessages("c1")
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Content)
	assert.Equal(t, "two", list[1].Content)
	assert.Len(t, s.LoadMessages("c2"), 1)
}

func TestUpdateMessage(t *testing.T) {
	s := newTestStore()

	msg := model.NewAssistantMessage("draft")
	require.True(t, s.AddMessage("c1", msg))

	msg.Content = "final"
	require.True(t, s.UpdateMessage("c1", msg))

	list := s.LoadMessages("c1")
	require.Len(t, list, 1)
	assert.Equal(t, "final", list[0].Content)
}

func TestLoadMessages_ReconstitutesTimestamps(t *testing.T) {
	kv := NewMemKV()
	s := New(kv, nil)

	// Stored document predating the timestamp field.
	raw := `{"c1":[{"id":"m1","role":"user","content":"hi"}]}`
	require.NoError(t, kv.Set("chatMessages", raw))

	list := s.LoadMessages("c1")
	require.Len(t, list, 1)
	assert.False(t, list[0].Timestamp.IsZero(), "missing timestamp assigned")
}

func TestLoadMessages_CorruptDocumentYieldsEmpty(t *testing.T) {
	kv := NewMemKV()
	s := New(kv, nil)
	require.NoError(t, kv.Set("chatMessages", "{{{not json"))

	assert.Empty(t, s.LoadMessages("c1"))
}

func TestStore_TotalOnSubstrateFailure(t *testing.T) {
	kv := &failingKV{MemKV: NewMemKV(), failSet: true, failDelete: true}
	s := New(kv, nil)

	// Every operation must absorb the failure and report false.
	assert.False(t, s.AddChat(model.NewChatRecord("x")))
	assert.False(t, s.AddMessage("c1", model.NewUserMessage("hi")))
	assert.False(t, s.SaveSettings(model.DefaultSettings()))
	assert.False(t, s.ClearAll())
	assert.Empty(t, s.LoadChatHistory())
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestSettings_RoundTrip(t *testing.T) {
	s := newTestStore()

	chat := model.NewChatRecord("keep me")
	require.True(t, s.AddChat(chat))

	settings := model.DefaultSettings()
	settings.SelectedChatID = chat.ID
	settings.Theme = model.ThemeLight
	require.True(t, s.SaveSettings(settings))

	loaded := s.LoadSettings()
	assert.Equal(t, chat.ID, loaded.SelectedChatID)
	assert.Equal(t, model.ThemeLight, loaded.Theme)
}

func TestSettings_DanglingSelectionCleared(t *testing.T) {
	s := newTestStore()

	settings := model.DefaultSettings()
	settings.SelectedChatID = "deleted-chat-id"
	require.True(t, s.SaveSettings(settings))

	loaded := s.LoadSettings()
	assert.Empty(t, loaded.SelectedChatID)
}

func TestSettings_DefaultWhenMissing(t *testing.T) {
	s := newTestStore()
	loaded := s.LoadSettings()
	assert.Equal(t, model.ThemeDark, loaded.Theme)
}

// =============================================================================
// EXPORT / IMPORT TESTS
// =============================================================================

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestStore()

	chatA := model.NewChatRecord("alpha")
	chatB := model.NewChatRecord("beta")
	require.True(t, src.AddChat(chatA))
	require.True(t, src.AddChat(chatB))
	require.True(t, src.AddMessage(chatA.ID, model.NewUserMessage("question")))
	require.True(t, src.AddMessage(chatA.ID, model.NewAssistantMessage("answer")))

	data, ok := src.ExportData()
	require.True(t, ok)

	dst := newTestStore()
	require.True(t, dst.ImportData(data))

	history := dst.LoadChatHistory()
	require.Len(t, history, 2)
	assert.Equal(t, chatB.ID, history[0].ID, "order preserved")

	msgs := dst.LoadMessages(chatA.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "answer", msgs[1].Content)
}

func TestImport_MalformedSectionDoesNotBlockOthers(t *testing.T) {
	s := newTestStore()

	doc := `{
		"chatHistory": "this section is garbage",
		"chatMessages": {"c1": [{"id":"m1","role":"user","content":"hi"}]},
		"settings": {"theme":"light"}
	}`
	assert.False(t, s.ImportData([]byte(doc)), "reports the bad section")

	// Valid sections landed anyway.
	assert.Len(t, s.LoadMessages("c1"), 1)
	assert.Equal(t, model.ThemeLight, s.LoadSettings().Theme)
}

func TestImport_TotallyMalformedDocumentFails(t *testing.T) {
	s := newTestStore()
	require.True(t, s.AddChat(model.NewChatRecord("existing")))

	assert.False(t, s.ImportData([]byte("not a json document")))
	assert.Len(t, s.LoadChatHistory(), 1, "existing data untouched")
}
