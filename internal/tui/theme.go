// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// theme.go - Visual styling for the chat interface.

package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for one rendering pass.
type Theme struct {
	IsDark bool

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	ErrorBody      lipgloss.Style
	Thinking       lipgloss.Style

	InputBox    lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	Banner      lipgloss.Style
	Spinner     lipgloss.Style

	PickerBox      lipgloss.Style
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
	PickerDim      lipgloss.Style
}

// ThemeIsDark resolves a configured theme name to dark/light, falling
// back to terminal background detection for anything else ("auto",
// empty, unknown).
func ThemeIsDark(name string) bool {
	switch name {
	case "dark":
		return true
	case "light":
		return false
	default:
		return termenv.HasDarkBackground()
	}
}

// NewTheme builds the style set for a dark or light terminal.
func NewTheme(dark bool) *Theme {
	t := &Theme{IsDark: dark}

	accent := lipgloss.Color("39")   // cyan
	user := lipgloss.Color("42")     // green
	errCol := lipgloss.Color("196")  // red
	body := lipgloss.Color("252")    // off-white
	dim := lipgloss.Color("242")     // gray
	barBg := lipgloss.Color("236")   // near-black
	if !dark {
		body = lipgloss.Color("235")
		dim = lipgloss.Color("245")
		barBg = lipgloss.Color("254")
	}

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(dim)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(user)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.MessageBody = lipgloss.NewStyle().Foreground(body)
	t.ErrorBody = lipgloss.NewStyle().Foreground(errCol)
	t.Thinking = lipgloss.NewStyle().Foreground(dim).Italic(true)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(accent)
	t.StatusBar = lipgloss.NewStyle().Background(barBg).Foreground(dim)
	t.StatusKey = lipgloss.NewStyle().Background(barBg).Foreground(accent).Bold(true)
	t.StatusValue = lipgloss.NewStyle().Background(barBg).Foreground(body)
	t.Banner = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	t.Spinner = lipgloss.NewStyle().Foreground(accent)

	t.PickerBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	t.PickerItem = lipgloss.NewStyle().Foreground(body)
	t.PickerSelected = lipgloss.NewStyle().Bold(true).Foreground(accent)
	t.PickerDim = lipgloss.NewStyle().Foreground(dim)

	return t
}
