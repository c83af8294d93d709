// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates a chat session: it drives one completion at a
// time through the Ollama client, segments the streamed text into thinking
// and answer portions, publishes live updates, and commits the final
// exchange to the store.
//
// A Session is a small state machine: Idle -> Sending -> Streaming ->
// Settled, then back to Idle once the outcome has been delivered. Only one
// send may be in flight; a second send while busy is rejected, not queued.
// Cancellation settles the session silently rather than as a failure.
package chat
