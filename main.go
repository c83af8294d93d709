// chatrun - a terminal chat client for local LLM servers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jeranaias/chatrun-tui/internal/cli"
	"github.com/jeranaias/chatrun-tui/internal/config"
	"github.com/jeranaias/chatrun-tui/internal/ollama"
	"github.com/jeranaias/chatrun-tui/internal/store"
	"github.com/jeranaias/chatrun-tui/internal/tui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	}

	logger := log.New(io.Discard, "chatrun: ", log.LstdFlags)
	if args.Verbose {
		logger.SetOutput(os.Stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	st := openStore(cfg, logger)
	defer st.Close()

	client := buildClient(cfg, args)

	if cfg.Server.AutoStart && needsServer(cmd) {
		if err := client.EnsureRunning(context.Background()); err != nil {
			logger.Printf("autostart: %v", err)
		}
	}

	deps := cli.Deps{Config: cfg, Client: client, Store: st}

	if err := dispatch(cmd, deps, args, logger); err != nil {
		fmt.Fprintf(os.Stderr, "chatrun: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(cmd cli.Command, deps cli.Deps, args cli.Args, logger *log.Logger) error {
	switch cmd {
	case cli.CmdTUI:
		if !cli.Interactive() {
			// Piped invocations land here when no subcommand was
			// given; the REPL and TUI both need a terminal.
			return fmt.Errorf("no terminal detected; try `chatrun ask \"question\"`")
		}
		return tui.Run(deps.Config, deps.Client, deps.Store, logger)

	case cli.CmdChat:
		return cli.HandleChat(deps, args)

	case cli.CmdAsk:
		return cli.HandleAsk(deps, args)

	case cli.CmdModels:
		return cli.HandleModels(deps, args)

	case cli.CmdShow:
		return cli.HandleShow(deps, args)

	case cli.CmdPull:
		return cli.HandlePull(deps, args)

	case cli.CmdExport:
		return cli.HandleExport(deps, args)

	case cli.CmdImport:
		return cli.HandleImport(deps, args)

	case cli.CmdConfig:
		return cli.HandleConfig(deps, args)

	case cli.CmdStatus:
		return cli.HandleStatus(deps, args)

	default:
		cli.PrintUsage()
		return nil
	}
}

// openStore opens the SQLite-backed store, falling back to memory so the
// app still runs when the database is unavailable.
func openStore(cfg *config.Config, logger *log.Logger) *store.Store {
	path := cfg.Storage.DBPath
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "chatrun: no home directory; history will not persist\n")
			return store.New(store.NewMemKV(), logger)
		}
	}

	kv, err := store.OpenSQLite(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatrun: cannot open %s (%v); history will not persist\n", path, err)
		return store.New(store.NewMemKV(), logger)
	}
	return store.New(kv, logger)
}

// buildClient assembles the model server client from config and flags.
func buildClient(cfg *config.Config, args cli.Args) *ollama.Client {
	systemPrompt := cfg.Chat.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = ollama.DefaultSystemPrompt
	}

	modelName := cfg.Server.DefaultModel
	if args.Model != "" {
		modelName = args.Model
	}

	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Server.URL,
		Timeout:      cfg.Server.Timeout(),
		DefaultModel: modelName,
		SystemPrompt: systemPrompt,
		ModelOptions: modelOptions(cfg),
	})
}

// modelOptions converts per-model config parameters to wire options.
func modelOptions(cfg *config.Config) map[string]ollama.Options {
	if len(cfg.Models) == 0 {
		return nil
	}
	opts := make(map[string]ollama.Options, len(cfg.Models))
	for name, p := range cfg.Models {
		opts[name] = ollama.Options{
			Temperature:   p.Temperature,
			TopK:          p.TopK,
			TopP:          p.TopP,
			RepeatPenalty: p.RepeatPenalty,
			NumCtx:        p.NumCtx,
			NumPredict:    p.MaxTokens,
		}
	}
	return opts
}

// needsServer reports whether a command talks to the model server.
func needsServer(cmd cli.Command) bool {
	switch cmd {
	case cli.CmdTUI, cli.CmdChat, cli.CmdAsk, cli.CmdModels, cli.CmdShow, cli.CmdPull:
		return true
	default:
		return false
	}
}
