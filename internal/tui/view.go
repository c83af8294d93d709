// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Rendering for the chat interface.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chatrun-tui/internal/chat"
	"github.com/jeranaias/chatrun-tui/internal/model"
)

const (
	headerHeight = 2
	statusHeight = 1
)

// View renders one frame.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	if m.pickerOpen {
		return m.renderPicker()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputBox.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("chatrun")
	chatTitle := ""
	if id := m.session.ChatID(); id != "" {
		for _, c := range m.store.LoadChatHistory() {
			if c.ID == id {
				chatTitle = truncateCells(c.Title, m.width-20)
				break
			}
		}
	}
	line := title
	if chatTitle != "" {
		line += m.theme.PickerDim.Render("  │  ") + m.theme.MessageBody.Render(chatTitle)
	}
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderStatusBar() string {
	if m.banner != "" {
		return m.theme.Banner.Render(truncateCells(m.banner, m.width))
	}

	left := fmt.Sprintf(" %s %s  %s %s ",
		m.theme.StatusKey.Render("model"),
		m.theme.StatusValue.Render(m.modelName),
		m.theme.StatusKey.Render("server"),
		m.theme.StatusValue.Render(m.serverStatus))

	var middle string
	if m.state == chat.StateSending || m.state == chat.StateStreaming {
		middle = m.spinner.View() + m.theme.StatusValue.Render(" generating (ctrl+x cancels)")
	}

	help := m.theme.StatusBar.Render("enter send · ctrl+n new · ctrl+o chats · esc quit ")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(help)
	if gap < 1 {
		help = ""
		gap = m.width - lipgloss.Width(left) - lipgloss.Width(middle)
		if gap < 0 {
			gap = 0
		}
	}
	return left + middle + m.theme.StatusBar.Render(strings.Repeat(" ", gap)) + help
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript rebuilds the viewport content from the committed
// conversation plus the live streaming tail.
func (m *Model) refreshTranscript(stick bool) {
	if !m.ready {
		return
	}

	var b strings.Builder
	messages := m.session.Messages()

	for _, msg := range messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	// Echo the just-submitted user message until its store write lands.
	if m.pendingEcho != "" && !lastUserMatches(messages, m.pendingEcho) {
		b.WriteString(m.renderMessage(model.NewUserMessage(m.pendingEcho)))
		b.WriteString("\n")
	}

	if m.state == chat.StateSending || m.state == chat.StateStreaming {
		b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		if m.liveThinking != "" && m.cfg.Chat.ShowThinking {
			b.WriteString(m.theme.Thinking.Render(wrapCells(m.liveThinking, m.width-4)))
			b.WriteString("\n")
		}
		if m.liveAnswer != "" {
			b.WriteString(m.theme.MessageBody.Render(wrapCells(m.liveAnswer, m.width-4)))
			b.WriteString("\n")
		}
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(b.String())
	if stick || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessage(msg model.Message) string {
	var b strings.Builder
	switch {
	case msg.IsError:
		b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		b.WriteString(m.theme.ErrorBody.Render(wrapCells(msg.Content, m.width-4)))
	case msg.Role == model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render("You"))
		b.WriteString("\n")
		b.WriteString(m.theme.MessageBody.Render(wrapCells(msg.Content, m.width-4)))
	default:
		b.WriteString(m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(m.markdown.render(msg.Content))
	}
	b.WriteString("\n")
	return b.String()
}

func lastUserMatches(messages []model.Message, text string) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content == text
		}
	}
	return false
}

// =============================================================================
// CHAT PICKER
// =============================================================================

func (m Model) renderPicker() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Saved chats"))
	b.WriteString("\n\n")

	for i, c := range m.pickerRows {
		row := fmt.Sprintf("%-40s %s",
			truncateCells(c.Title, 40),
			c.TimestampLabel)
		if i == m.pickerIdx {
			b.WriteString(m.theme.PickerSelected.Render("> " + row))
		} else {
			b.WriteString(m.theme.PickerItem.Render("  " + row))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.PickerDim.Render("enter open · esc close"))

	box := m.theme.PickerBox.Width(min(m.width-4, 64)).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

// truncateCells trims s to max display cells, runewidth-aware.
func truncateCells(s string, max int) string {
	if max <= 0 {
		return ""
	}
	return runewidth.Truncate(s, max, "...")
}

// wrapCells wraps text to a display width, preserving newlines.
func wrapCells(text string, width int) string {
	if width < 10 {
		width = 10
	}
	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		if runewidth.StringWidth(line) <= width {
			out.WriteString(line)
			continue
		}
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if runewidth.StringWidth(current)+1+runewidth.StringWidth(word) <= width {
				current += " " + word
			} else {
				out.WriteString(current)
				out.WriteString("\n")
				current = word
			}
		}
		out.WriteString(current)
	}
	return out.String()
}

// =============================================================================
// MARKDOWN
// =============================================================================

// markdownCache wraps a glamour renderer, rebuilt on resize. Rendering
// falls back to plain text whenever glamour is unavailable or disabled.
type markdownCache struct {
	enabled  bool
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownCache(enabled bool) *markdownCache {
	c := &markdownCache{enabled: enabled, width: 80}
	c.rebuild()
	return c
}

func (c *markdownCache) setWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == c.width {
		return
	}
	c.width = width
	c.rebuild()
}

func (c *markdownCache) rebuild() {
	if !c.enabled {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(c.width),
	)
	if err != nil {
		c.renderer = nil
		return
	}
	c.renderer = r
}

func (c *markdownCache) render(content string) string {
	if !c.enabled || c.renderer == nil {
		return content
	}
	out, err := c.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
