// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable persistence for chat history, per-chat
// message lists, and app settings.
//
// Values live in three logical documents under fixed keys on a string-keyed
// KV substrate. Two substrates are provided: SQLiteKV for real use and MemKV
// for tests.
//
// Every Store operation is total: failures are absorbed, reported through
// the boolean return, and logged to the store's diagnostic sink. Nothing
// panics and nothing propagates past the Store boundary.
//
// Concurrent writers to the same document can lose updates: each operation
// reads the full current value, merges, and writes the full new value back.
// Multi-key operations such as DeleteChat run their sub-steps best-effort,
// not transactionally.
package store
