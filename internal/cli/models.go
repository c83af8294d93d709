// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model management commands for chatrun.
//
// Handles "chatrun models", "chatrun show <model>", and
// "chatrun pull <model>".

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/chatrun-tui/internal/ollama"
)

// HandleModels lists the models installed on the server.
func HandleModels(deps Deps, args Args) error {
	ctx := context.Background()
	models, err := deps.Client.ListModels(ctx)
	if err != nil {
		return askError(err)
	}
	if len(models) == 0 {
		fmt.Println(DimStyle.Render("no models installed; `chatrun pull <model>` to fetch one"))
		return nil
	}

	active := deps.Client.GetConfig().DefaultModel
	for _, m := range models {
		marker := " "
		if m.Name == active {
			marker = SuccessStyle.Render("*")
		}
		fmt.Printf("%s %-32s %10s  %s\n",
			marker,
			ValueStyle.Render(m.Name),
			m.FormatSize(),
			DimStyle.Render(m.Details.ParameterSize))
	}
	return nil
}

// HandleShow prints metadata for one model.
func HandleShow(deps Deps, args Args) error {
	name := args.Subcommand
	if name == "" {
		return fmt.Errorf("usage: chatrun show <model>")
	}

	ctx := context.Background()
	meta, err := deps.Client.ShowModel(ctx, name)
	if err != nil {
		return askError(err)
	}

	fmt.Println(TitleStyle.Render(meta.Name))
	printField("Family", meta.Family)
	printField("Parameters", meta.ParameterSize)
	printField("Quantization", meta.Quantization)
	if meta.ContextLength > 0 {
		printField("Context", fmt.Sprintf("%d tokens", meta.ContextLength))
	}
	if args.Verbose && meta.Parameters != "" {
		fmt.Println(LabelStyle.Render("Options"))
		for _, line := range strings.Split(strings.TrimSpace(meta.Parameters), "\n") {
			fmt.Printf("  %s\n", DimStyle.Render(line))
		}
	}
	return nil
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%s %s\n", LabelStyle.Render(label), ValueStyle.Render(value))
}

// HandlePull downloads a model, reporting progress on one line.
func HandlePull(deps Deps, args Args) error {
	name := args.Subcommand
	if name == "" {
		return fmt.Errorf("usage: chatrun pull <model>")
	}

	ctx := context.Background()
	fmt.Printf("%s %s\n", InfoStyle.Render("pulling"), name)

	tty := IsStdoutTTY()
	lastStatus := ""
	err := deps.Client.PullModel(ctx, name, func(p ollama.PullProgress) {
		if tty {
			if pct := p.Percent(); pct >= 0 {
				fmt.Printf("\r\033[K%s %5.1f%%  %s", p.Status, pct, DimStyle.Render(formatBytes(p.Completed, p.Total)))
			} else {
				fmt.Printf("\r\033[K%s", p.Status)
			}
			return
		}
		// Piped output: one line per status change, no control codes.
		if p.Status != lastStatus {
			fmt.Println(p.Status)
			lastStatus = p.Status
		}
	})
	if tty {
		fmt.Println()
	}
	if err != nil {
		return askError(err)
	}
	fmt.Fprintln(os.Stderr, SuccessStyle.Render("[done]"))
	return nil
}

func formatBytes(completed, total int64) string {
	const gb = 1024 * 1024 * 1024
	const mb = 1024 * 1024
	if total >= gb {
		return fmt.Sprintf("%.1f/%.1f GB", float64(completed)/gb, float64(total)/gb)
	}
	return fmt.Sprintf("%.0f/%.0f MB", float64(completed)/mb, float64(total)/mb)
}
