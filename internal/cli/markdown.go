// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// markdown.go - Terminal markdown rendering for settled answers.

package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer is the shared glamour renderer. Nil when
// initialization failed; callers fall back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(DefaultTerminalWidth),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or the renderer is
// unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayAnswer prints a settled answer. Markdown rendering is only
// used on a TTY and when enabled in config, so piped output stays raw.
func displayAnswer(answer string, markdown bool) {
	if markdown && IsStdoutTTY() {
		fmt.Print(renderMarkdown(answer))
		return
	}
	fmt.Println(answer)
}
