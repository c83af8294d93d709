// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat history entries, messages, and app settings.
//
// # Key Types
//
//   - ChatRecord: Metadata entry for one conversation in the history list
//   - Message: Single message with role, content, timestamp, and error flag
//   - Settings: Singleton app settings (selected chat, theme)
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Create a new chat with its first message:
//
//	chat := model.NewChatRecord("What is 2+2?")
//	msg := model.NewUserMessage("What is 2+2?")
package model
