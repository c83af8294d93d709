// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status and config inspection commands.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatrun-tui/internal/config"
)

// HandleStatus probes the server and prints a one-screen summary.
func HandleStatus(deps Deps, args Args) error {
	fmt.Println(TitleStyle.Render("chatrun status"))

	ctx := context.Background()
	result := deps.Client.TestConnection(ctx)
	if result.Reachable {
		fmt.Printf("%s %s\n", LabelStyle.Render("Server"),
			SuccessStyle.Render("reachable")+DimStyle.Render(" "+deps.Client.GetConfig().BaseURL))
		fmt.Printf("%s %d installed\n", LabelStyle.Render("Models"), len(result.Models))
	} else {
		fmt.Printf("%s %s\n", LabelStyle.Render("Server"), ErrorStyle.Render("unreachable"))
		fmt.Printf("%s %s\n", LabelStyle.Render("Reason"), DimStyle.Render(result.Reason))
	}

	printField("Model", deps.Config.Server.DefaultModel)
	printField("Theme", deps.Config.UI.Theme)
	if path, err := config.ConfigPath(); err == nil {
		printField("Config", path)
	}
	printField("Database", deps.Config.Storage.DBPath)
	return nil
}

// HandleConfig implements "chatrun config [show|path]".
func HandleConfig(deps Deps, args Args) error {
	switch args.Subcommand {
	case "show":
		// Emit the effective config as TOML: defaults filled, env
		// overrides applied.
		return toml.NewEncoder(os.Stdout).Encode(deps.Config)

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("usage: chatrun config [show|path]")
	}
}
