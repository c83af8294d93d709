// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui implements the full-screen chat interface for chatrun,
// built on Bubble Tea. It consumes the chat session controller through
// its event callbacks and owns no conversation logic of its own: keys
// and resize events go in, rendered frames come out.
package tui
