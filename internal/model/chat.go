// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"time"

	"github.com/jeranaias/chatrun-tui/internal/util"
)

// TitleMaxRunes bounds chat titles derived from the first user message.
const TitleMaxRunes = 40

// PreviewMaxRunes bounds the single-line preview shown in the history list.
const PreviewMaxRunes = 60

// =============================================================================
// CHAT RECORD TYPE
// =============================================================================

// ChatRecord is the metadata entry for one conversation. The message bodies
// live in a separate per-chat list keyed by ID.
type ChatRecord struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	TimestampLabel string     `json:"timestampLabel"`
	Preview        string     `json:"preview"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
}

// NewChatRecord creates a record for a new conversation, deriving the title
// and preview from the first user message.
func NewChatRecord(firstMessage string) ChatRecord {
	now := time.Now()
	return ChatRecord{
		ID:             NewID(),
		Title:          DeriveTitle(firstMessage),
		TimestampLabel: FormatTimestampLabel(now),
		Preview:        DerivePreview(firstMessage),
		CreatedAt:      now,
	}
}

// Touch updates the record after a completed exchange.
func (c *ChatRecord) Touch(lastMessage string) {
	now := time.Now()
	c.Preview = DerivePreview(lastMessage)
	c.TimestampLabel = FormatTimestampLabel(now)
	c.LastMessageAt = &now
}

// Normalize fills fields a stored record may be missing.
func (c *ChatRecord) Normalize() {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.TimestampLabel == "" {
		c.TimestampLabel = FormatTimestampLabel(c.CreatedAt)
	}
}

// DeriveTitle produces a history-list title from message content.
func DeriveTitle(content string) string {
	title := util.TruncateRunes(util.Flatten(content), TitleMaxRunes)
	if title == "" {
		title = "New chat"
	}
	return title
}

// DerivePreview produces a single-line preview from message content.
func DerivePreview(content string) string {
	return util.TruncateRunes(util.Flatten(content), PreviewMaxRunes)
}

// FormatTimestampLabel renders an instant the way the history list shows it.
func FormatTimestampLabel(t time.Time) string {
	return t.Format("Jan 2, 3:04 PM")
}
