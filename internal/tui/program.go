// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// program.go - Program assembly for the chat interface.

package tui

import (
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatrun-tui/internal/chat"
	"github.com/jeranaias/chatrun-tui/internal/config"
	"github.com/jeranaias/chatrun-tui/internal/ollama"
	"github.com/jeranaias/chatrun-tui/internal/store"
)

// Run wires the session controller to a Bubble Tea program and blocks
// until the user quits.
func Run(cfg *config.Config, client *ollama.Client, st *store.Store, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	// The program pointer is captured by the event bridge before it is
	// assigned; events only fire once a send is in flight, which can
	// only be triggered from a running program.
	var program *tea.Program

	events := chat.Events{
		OnState: func(s chat.State) {
			program.Send(SessionStateMsg{State: s})
		},
		OnAnswer: func(text string) {
			program.Send(AnswerMsg{Text: text})
		},
		OnThinking: func(text string) {
			program.Send(ThinkingMsg{Text: text})
		},
		OnStorageError: func(text string) {
			program.Send(StorageErrorMsg{Text: text})
		},
	}

	session := chat.NewSession(client, st, events, logger)

	// Resume where the user left off.
	if settings := st.LoadSettings(); settings.SelectedChatID != "" {
		if err := session.SelectChat(settings.SelectedChatID); err != nil {
			logger.Printf("tui: stale chat selection %s: %v", settings.SelectedChatID, err)
		}
	}

	m := New(cfg, session, st, client)
	program = tea.NewProgram(m, tea.WithAltScreen())

	// Hot-reload edits to the config file while the interface runs.
	// The watcher is best effort; the session continues without it.
	if cfgPath, perr := config.ConfigPath(); perr == nil {
		watcher, werr := config.Watch(cfgPath, func(next *config.Config) {
			program.Send(ConfigReloadedMsg{Config: next})
		})
		if werr != nil {
			logger.Printf("tui: config watch unavailable: %v", werr)
		} else {
			defer watcher.Close()
		}
	}

	_, err := program.Run()
	return err
}
