// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for chatrun.
//
// Handles "chatrun ask": sends a single question, streams the answer to
// stdout, and exits. Nothing is persisted; this surface is for scripts
// and quick lookups.
//
// Examples:
//   chatrun ask "how do I list open ports?"
//   chatrun ask --file main.go "review this code"
//   chatrun ask -m qwen2.5:14b "summarize TCP slow start"

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/chatrun-tui/internal/ollama"
	"github.com/jeranaias/chatrun-tui/internal/segment"
)

// MaxContextFileSize caps --file includes at 50KB so a stray binary
// doesn't blow up the prompt.
const MaxContextFileSize = 50 * 1024

// HandleAsk runs a single completion and prints the answer.
func HandleAsk(deps Deps, args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return fmt.Errorf("usage: chatrun ask \"question\"")
	}

	if args.File != "" {
		fileCtx, err := readFileForContext(args.File)
		if err != nil {
			return err
		}
		query += fileCtx
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C aborts the stream cleanly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	var opts *ollama.CompletionOpts
	if args.Model != "" {
		opts = &ollama.CompletionOpts{Model: args.Model}
	}

	stream, err := deps.Client.ChatStream(ctx, []ollama.Message{ollama.NewUserMessage(query)}, opts)
	if err != nil {
		return askError(err)
	}
	defer stream.Close()

	// On a TTY with markdown enabled the answer is collected and
	// rendered once; otherwise it streams raw as it arrives.
	markdown := deps.Config.UI.Markdown && IsStdoutTTY()

	var accumulated strings.Builder
	var result segment.Result
	printed := 0
	for {
		chunk, chunkErr := stream.Next()
		if chunkErr == io.EOF {
			break
		}
		if chunkErr != nil {
			if ollama.IsCancelled(chunkErr) {
				fmt.Fprintln(os.Stderr, WarningStyle.Render("[cancelled]"))
				return nil
			}
			return askError(chunkErr)
		}

		accumulated.WriteString(chunk.Fragment)
		result = segment.Split(accumulated.String())
		if !markdown && len(result.Answer) > printed {
			fmt.Print(result.Answer[printed:])
			printed = len(result.Answer)
		}
		if chunk.Final {
			break
		}
	}

	answer := segment.StripTags(result.Answer)
	if markdown {
		displayAnswer(answer, true)
	} else {
		if printed < len(answer) {
			fmt.Print(answer[printed:])
		}
		fmt.Println()
	}

	if args.Verbose && deps.Config.Chat.ShowThinking && result.Thinking != "" {
		fmt.Fprintln(os.Stderr, RenderSeparator(30))
		fmt.Fprintln(os.Stderr, ThinkingStyle.Render(WrapText(result.Thinking, TerminalWidth())))
	}
	return nil
}

// askError maps client errors to actionable messages.
func askError(err error) error {
	switch {
	case ollama.IsNotRunning(err):
		return fmt.Errorf("the model server is not running; start it with `ollama serve`")
	case ollama.IsModelNotFound(err):
		return fmt.Errorf("%v; `chatrun pull <model>` to fetch it", err)
	case ollama.IsTimeout(err):
		return fmt.Errorf("the model server timed out; try again or raise server.timeout_secs")
	default:
		return err
	}
}

// readFileForContext reads a file and formats it for inclusion in the
// prompt. Files larger than MaxContextFileSize are rejected.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxContextFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxContextFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n--- File: %s ---\n", path)
	b.Write(content)
	b.WriteString("\n--- End of file ---\n")
	return b.String(), nil
}
