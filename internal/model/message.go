// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat. Assistant content is the
// answer portion only, never raw tagged model output.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// IsError marks an assistant message that carries error text instead
	// of completion content.
	IsError bool `json:"isError,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewErrorMessage creates an assistant message carrying error text.
func NewErrorMessage(text string) Message {
	msg := NewMessage(RoleAssistant, text)
	msg.IsError = true
	return msg
}

// Normalize fills fields a stored message may be missing. A message loaded
// without a timestamp gets the current instant rather than the zero value.
func (m *Message) Normalize() {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.ID == "" {
		m.ID = NewID()
	}
}

// =============================================================================
// ID GENERATION
// =============================================================================

// NewID generates an identifier that sorts by creation order. The millisecond
// prefix keeps ids monotonic across a session; the UUID suffix keeps two ids
// created in the same millisecond distinct.
func NewID() string {
	return fmt.Sprintf("%013d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
