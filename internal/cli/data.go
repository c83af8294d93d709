// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// data.go - Chat history export and import commands.

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/chatrun-tui/internal/util"
)

// HandleExport writes the full chat history as a JSON document. With no
// path the document goes to stdout so it can be piped.
func HandleExport(deps Deps, args Args) error {
	data, ok := deps.Store.ExportData()
	if !ok {
		return fmt.Errorf("could not assemble the export document")
	}

	if args.Path == "" {
		os.Stdout.Write(data)
		fmt.Println()
		return nil
	}

	if err := util.AtomicWriteFile(args.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", args.Path, err)
	}
	if !args.Quiet {
		fmt.Printf("%s exported to %s\n", SuccessStyle.Render("[ok]"), args.Path)
	}
	return nil
}

// HandleImport loads a previously exported document. Import replaces the
// stored history, so it asks before proceeding on a TTY.
func HandleImport(deps Deps, args Args) error {
	if args.Path == "" {
		return fmt.Errorf("usage: chatrun import <file>")
	}

	data, err := os.ReadFile(args.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args.Path, err)
	}

	if IsTTY() && !args.Quiet {
		fmt.Printf("%s import replaces the current chat history. Continue? [y/N] ",
			WarningStyle.Render("[warning]"))
		var reply string
		fmt.Scanln(&reply)
		if reply != "y" && reply != "Y" && reply != "yes" {
			fmt.Println(DimStyle.Render("[aborted]"))
			return nil
		}
	}

	if !deps.Store.ImportData(data) {
		return fmt.Errorf("%s is not a chatrun export document", args.Path)
	}
	if !args.Quiet {
		fmt.Printf("%s imported %s\n", SuccessStyle.Render("[ok]"), args.Path)
	}
	return nil
}
