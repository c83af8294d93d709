// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewID_UniqueAndOrdered(t *testing.T) {
	a := NewID()
	time.Sleep(2 * time.Millisecond)
	b := NewID()

	if a == b {
		t.Fatal("ids collide")
	}
	if !(a < b) {
		t.Errorf("ids not monotonic: %q then %q", a, b)
	}
}

func TestNewChatRecord(t *testing.T) {
	chat := NewChatRecord("What is the capital of France?")

	if chat.ID == "" {
		t.Error("missing ID")
	}
	if chat.Title != "What is the capital of France?" {
		t.Errorf("Title = %q", chat.Title)
	}
	if chat.Preview == "" || chat.TimestampLabel == "" {
		t.Error("preview or timestamp label not derived")
	}
	if chat.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if chat.LastMessageAt != nil {
		t.Error("LastMessageAt should be unset on creation")
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hello", "hello"},
		{"empty falls back", "   ", "New chat"},
		{"multi-line flattened", "line one\nline two", "line one line two"},
		{
			"long truncated",
			strings.Repeat("a", 100),
			strings.Repeat("a", TitleMaxRunes-3) + "...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.in); got != tc.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestChatRecord_Touch(t *testing.T) {
	chat := NewChatRecord("first question")
	chat.Touch("the final answer text")

	if chat.LastMessageAt == nil {
		t.Fatal("LastMessageAt not set")
	}
	if chat.Preview != "the final answer text" {
		t.Errorf("Preview = %q", chat.Preview)
	}
}

func TestMessage_Normalize(t *testing.T) {
	var msg Message
	msg.Normalize()

	if msg.Timestamp.IsZero() {
		t.Error("zero timestamp not replaced")
	}
	if msg.ID == "" {
		t.Error("missing ID not generated")
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	msg := NewErrorMessage("server unreachable")

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Message
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.ID != msg.ID || back.Content != msg.Content || !back.IsError {
		t.Errorf("round trip mismatch: %+v", back)
	}
	if back.Role != RoleAssistant {
		t.Errorf("Role = %q", back.Role)
	}
}

func TestSettings_Normalize(t *testing.T) {
	s := Settings{Theme: "neon"}
	s.Normalize()

	if s.Theme != ThemeDark {
		t.Errorf("invalid theme not reset: %q", s.Theme)
	}
	if s.LastActive.IsZero() {
		t.Error("LastActive not set")
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("user display = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("assistant display = %q", RoleAssistant.DisplayName())
	}
}
