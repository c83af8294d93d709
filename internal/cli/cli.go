// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for chatrun.
//
// Commands:
//   chatrun                     Start the TUI (default)
//   chatrun chat                Plain interactive REPL
//   chatrun ask "question"      One-shot question, streamed to stdout
//   chatrun models              List installed models
//   chatrun show <model>        Show model metadata
//   chatrun pull <model>        Download a model with progress
//   chatrun export [file]       Export chat history as JSON
//   chatrun import <file>       Import a previous export
//   chatrun config [show|path]  Configuration inspection
//   chatrun status              Server reachability and settings
//   chatrun version             Version information
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdModels
	CmdShow
	CmdPull
	CmdExport
	CmdImport
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model   string
	Quiet   bool
	Verbose bool

	// Command-specific
	Query      string // ask: the question text
	File       string // ask: file to include as context
	Path       string // export/import: target file
	Subcommand string // config: show|path

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `chatrun - terminal chat client for local Ollama models

Usage:
  chatrun                     Start the TUI (default)
  chatrun chat                Interactive chat in the plain terminal
  chatrun ask "question"      Ask a single question
  chatrun models              List installed models
  chatrun show <model>        Show model metadata
  chatrun pull <model>        Download a model
  chatrun export [file]       Export chat history as JSON
  chatrun import <file>       Import a previous export
  chatrun config [show|path]  Configuration inspection
  chatrun status              Server reachability and settings
  chatrun version             Version information

Global flags:
  -m, --model NAME    Use a specific model (overrides config)
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output

Ask flags:
  -f, --file FILE     Include file content with the question

Interactive commands (during chat):
  /help               Show available commands
  /new                Start a new chat
  /chats              List saved chats
  /open <id>          Resume a saved chat
  /model [name]       Show or switch model
  /clear              Delete the current chat
  /quit               Exit
  Ctrl+C              Cancel the current response

Environment:
  CHATRUN_URL         Ollama server URL
  CHATRUN_MODEL       Default model
  CHATRUN_DB          Database path
  NO_COLOR            Disable colored output

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("chatrun version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	first := remaining[0]
	cmd := strings.ToLower(first)
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "chat":
		return CmdChat, args

	case "ask":
		parseAskArgs(&args, remaining)
		return CmdAsk, args

	case "models", "list", "ls":
		return CmdModels, args

	case "show":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdShow, args

	case "pull":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdPull, args

	case "export":
		if len(remaining) > 0 {
			args.Path = remaining[0]
		}
		return CmdExport, args

	case "import":
		if len(remaining) > 0 {
			args.Path = remaining[0]
		}
		return CmdImport, args

	case "config":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
		} else {
			args.Subcommand = "show"
		}
		return CmdConfig, args

	case "status", "s":
		return CmdStatus, args

	case "version", "--version", "-V":
		return CmdVersion, args

	case "help", "--help", "-h":
		return CmdHelp, args

	default:
		// Unknown word: treat it as an ask query so that
		// `chatrun "what is X"` just works.
		args.Query = strings.Join(append([]string{first}, remaining...), " ")
		return CmdAsk, args
	}
}

// parseGlobalFlags extracts global flags, returning the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-m" || arg == "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case strings.HasPrefix(arg, "--model="):
			args.Model = strings.TrimPrefix(arg, "--model=")
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, args
}

// parseAskArgs extracts ask-specific flags and joins the rest into the query.
func parseAskArgs(args *Args, remaining []string) {
	var queryParts []string

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch {
		case arg == "-f" || arg == "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case strings.HasPrefix(arg, "--file="):
			args.File = strings.TrimPrefix(arg, "--file=")
		default:
			queryParts = append(queryParts, arg)
		}
	}

	args.Query = strings.Join(queryParts, " ")
}
