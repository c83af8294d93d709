// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chatrun command-line surface: argument
// parsing, the plain interactive REPL, one-shot ask, model management,
// and history export/import. The TUI lives in internal/tui; this package
// covers everything reachable without a full-screen terminal.
package cli
