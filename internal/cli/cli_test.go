// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"no args defaults to tui", []string{}, CmdTUI},
		{"explicit tui", []string{"tui"}, CmdTUI},
		{"chat", []string{"chat"}, CmdChat},
		{"ask", []string{"ask", "hello"}, CmdAsk},
		{"models", []string{"models"}, CmdModels},
		{"models alias ls", []string{"ls"}, CmdModels},
		{"show", []string{"show", "llama3.2"}, CmdShow},
		{"pull", []string{"pull", "llama3.2"}, CmdPull},
		{"export", []string{"export", "out.json"}, CmdExport},
		{"import", []string{"import", "in.json"}, CmdImport},
		{"config", []string{"config"}, CmdConfig},
		{"status", []string{"status"}, CmdStatus},
		{"status alias", []string{"s"}, CmdStatus},
		{"version", []string{"version"}, CmdVersion},
		{"help", []string{"--help"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := parse(tt.argv)
			if cmd != tt.want {
				t.Errorf("parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parse([]string{"--model", "qwen2.5:14b", "chat", "-q"})
	if cmd != CmdChat {
		t.Fatalf("expected CmdChat, got %v", cmd)
	}
	if args.Model != "qwen2.5:14b" {
		t.Errorf("Model = %q", args.Model)
	}
	if !args.Quiet {
		t.Error("expected Quiet to be set")
	}
}

func TestParseModelEqualsForm(t *testing.T) {
	_, args := parse([]string{"--model=llama3.2", "ask", "hi"})
	if args.Model != "llama3.2" {
		t.Errorf("Model = %q, want llama3.2", args.Model)
	}
}

func TestParseAskQuery(t *testing.T) {
	cmd, args := parse([]string{"ask", "what", "is", "tcp"})
	if cmd != CmdAsk {
		t.Fatalf("expected CmdAsk, got %v", cmd)
	}
	if args.Query != "what is tcp" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseAskFileFlag(t *testing.T) {
	_, args := parse([]string{"ask", "--file", "main.go", "review", "this"})
	if args.File != "main.go" {
		t.Errorf("File = %q", args.File)
	}
	if args.Query != "review this" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseBareQuestionBecomesAsk(t *testing.T) {
	cmd, args := parse([]string{"what is the capital of France"})
	if cmd != CmdAsk {
		t.Fatalf("expected CmdAsk, got %v", cmd)
	}
	if !strings.Contains(args.Query, "capital") {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseSubcommandTargets(t *testing.T) {
	_, args := parse([]string{"pull", "llama3.2:3b"})
	if args.Subcommand != "llama3.2:3b" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}

	_, args = parse([]string{"export", "/tmp/backup.json"})
	if args.Path != "/tmp/backup.json" {
		t.Errorf("Path = %q", args.Path)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		width   int
		maxLine int
	}{
		{"short line untouched", "hello world", 40, 40},
		{"long line wraps", strings.Repeat("word ", 30), 40, 40},
		{"narrow width", "one two three four five six", 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := WrapText(tt.text, tt.width)
			for _, line := range strings.Split(out, "\n") {
				if len(line) > tt.maxLine {
					t.Errorf("line %q exceeds width %d", line, tt.maxLine)
				}
			}
		})
	}
}

func TestWrapTextPreservesNewlines(t *testing.T) {
	out := WrapText("alpha\nbeta", 40)
	if out != "alpha\nbeta" {
		t.Errorf("WrapText = %q", out)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512*1024*1024, 2*1024*1024*1024); got != "0.5/2.0 GB" {
		t.Errorf("formatBytes GB = %q", got)
	}
	if got := formatBytes(10*1024*1024, 100*1024*1024); got != "10/100 MB" {
		t.Errorf("formatBytes MB = %q", got)
	}
}
