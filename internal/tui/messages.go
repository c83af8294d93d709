// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea message types for the chat interface.
//
// Live streaming updates arrive via program.Send from the session's
// event callbacks; everything else follows the usual command pattern.

package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrun-tui/internal/chat"
	"github.com/jeranaias/chatrun-tui/internal/config"
	"github.com/jeranaias/chatrun-tui/internal/ollama"
)

// AnswerMsg carries the accumulated, tag-free answer text mid-stream.
type AnswerMsg struct {
	Text string
}

// ThinkingMsg carries the accumulated reasoning text mid-stream.
type ThinkingMsg struct {
	Text string
}

// SessionStateMsg reports a controller state transition.
type SessionStateMsg struct {
	State chat.State
}

// SettledMsg delivers the outcome of a completed send.
type SettledMsg struct {
	Outcome chat.Outcome
	Err     error // ErrBusy from a double send; nil otherwise
}

// StorageErrorMsg surfaces a persistence failure as a transient banner.
type StorageErrorMsg struct {
	Text string
}

// bannerExpiredMsg clears a transient banner.
type bannerExpiredMsg struct{}

// ConfigReloadedMsg delivers a freshly re-loaded config from the file
// watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// ServerStatusMsg reports the startup reachability probe.
type ServerStatusMsg struct {
	Result ollama.TestResult
}

// sendCmd runs one exchange on the session. Incremental output arrives
// separately through the event bridge; this command resolves with the
// settled outcome.
func sendCmd(session *chat.Session, text string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := session.Send(context.Background(), text)
		return SettledMsg{Outcome: outcome, Err: err}
	}
}

// probeServerCmd checks server reachability at startup.
func probeServerCmd(client *ollama.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ServerStatusMsg{Result: client.TestConnection(ctx)}
	}
}

// expireBannerCmd clears the banner after a short delay.
func expireBannerCmd() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return bannerExpiredMsg{}
	})
}
