// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across chatrun.
//
// It contains rune-safe string helpers used for chat previews and titles,
// and AtomicWriteFile for crash-safe persistence of exported documents and
// configuration files.
package util
