// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Plain-terminal interactive chat for chatrun.
//
// Handles the "chatrun chat" command: a readline-style REPL over the
// chat session controller, with input history, streamed output, and
// slash commands. The full-screen experience lives in internal/tui;
// this surface works over ssh, in dumb terminals, and in scripts.
//
// Interactive commands:
//   /help               Show available commands
//   /new                Start a new chat
//   /chats              List saved chats
//   /open <id>          Resume a saved chat
//   /model [name]       Show or switch model
//   /clear              Delete the current chat
//   /quit               Exit
//   Ctrl+C              Cancel the current response

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/chatrun-tui/internal/chat"
	"github.com/jeranaias/chatrun-tui/internal/config"
	"github.com/jeranaias/chatrun-tui/internal/model"
	"github.com/jeranaias/chatrun-tui/internal/ollama"
	"github.com/jeranaias/chatrun-tui/internal/store"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// InputReader provides line editing and persistent input history for the
// REPL, backed by liner.
type InputReader struct {
	line        *liner.State
	historyFile string
}

// NewInputReader creates an InputReader with history loaded from the
// config directory.
func NewInputReader() *InputReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	r := &InputReader{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	r.loadHistory()
	return r
}

func (r *InputReader) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line with the given prompt. Non-empty input is
// added to history.
func (r *InputReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists input history with owner-only permissions.
func (r *InputReader) saveHistory() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (r *InputReader) Close() {
	r.saveHistory()
	r.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// Deps bundles the wired application components the command handlers
// operate on.
type Deps struct {
	Config *config.Config
	Client *ollama.Client
	Store  *store.Store
}

// HandleChat runs the interactive REPL until the user exits.
func HandleChat(deps Deps, args Args) error {
	if !Interactive() {
		return fmt.Errorf("chat requires an interactive terminal; use `chatrun ask` for piped input")
	}

	ctx := context.Background()
	if err := deps.Client.CheckRunning(ctx); err != nil {
		return fmt.Errorf("cannot reach the model server at %s: start it with `ollama serve`", deps.Client.GetConfig().BaseURL)
	}
	if args.Model != "" {
		deps.Client.GetConfig().DefaultModel = args.Model
	}

	printer := newStreamPrinter(deps.Config)
	session := chat.NewSession(deps.Client, deps.Store, chat.Events{
		OnAnswer:   printer.onAnswer,
		OnThinking: printer.onThinking,
		OnStorageError: func(msg string) {
			fmt.Fprintf(os.Stderr, "\n%s %s\n", WarningStyle.Render("[storage]"), msg)
		},
	}, nil)

	input := NewInputReader()
	defer input.Close()

	if !args.Quiet {
		printWelcome(deps)
	}

	// Ctrl+C during a stream cancels it; at the prompt liner turns it
	// into ErrPromptAborted instead.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			session.Cancel()
		}
	}()

	for {
		text, err := input.ReadInput(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D: exit gracefully.
			fmt.Println()
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			keepGoing, cmdErr := handleSlashCommand(text, deps, session)
			if cmdErr != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[error]"), cmdErr)
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			return nil
		}

		sendOne(ctx, session, printer, text)
	}
}

// sendOne drives a single exchange and prints its settled outcome.
func sendOne(ctx context.Context, session *chat.Session, printer *streamPrinter, text string) {
	printer.reset()
	fmt.Println()

	outcome, err := session.Send(ctx, text)
	if err != nil {
		// Only ErrBusy reaches here, and the REPL sends serially.
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[error]"), err)
		return
	}

	switch outcome.Status {
	case chat.StatusSuccess:
		printer.finish(outcome.Answer)
	case chat.StatusError:
		printer.newline()
		fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[error]"), outcome.ErrText)
	case chat.StatusCancelled:
		printer.newline()
		fmt.Println(WarningStyle.Render("[cancelled]"))
	}
	fmt.Println()
}

// =============================================================================
// STREAM PRINTING
// =============================================================================

// streamPrinter turns the session's accumulated-text events into
// incremental terminal output. With markdown enabled the answer is held
// back and rendered once settled; otherwise it streams raw.
type streamPrinter struct {
	markdown     bool
	showThinking bool

	printedThinking int
	printedAnswer   int
	wrote           bool
}

func newStreamPrinter(cfg *config.Config) *streamPrinter {
	return &streamPrinter{
		markdown:     cfg.UI.Markdown && IsStdoutTTY(),
		showThinking: cfg.Chat.ShowThinking,
	}
}

func (p *streamPrinter) reset() {
	p.printedThinking = 0
	p.printedAnswer = 0
	p.wrote = false
}

// onThinking streams the growing reasoning text, dimmed. Heuristic
// segmentation can reclassify text mid-stream, so a shrinking value is
// simply ignored rather than erased.
func (p *streamPrinter) onThinking(text string) {
	if !p.showThinking || len(text) <= p.printedThinking {
		return
	}
	fmt.Print(ThinkingStyle.Render(text[p.printedThinking:]))
	p.printedThinking = len(text)
	p.wrote = true
}

func (p *streamPrinter) onAnswer(text string) {
	if p.markdown || len(text) <= p.printedAnswer {
		return
	}
	if p.printedAnswer == 0 && p.wrote {
		fmt.Println()
	}
	fmt.Print(text[p.printedAnswer:])
	p.printedAnswer = len(text)
	p.wrote = true
}

// finish completes the output for a successful exchange.
func (p *streamPrinter) finish(answer string) {
	if p.markdown {
		if p.wrote {
			fmt.Println()
		}
		displayAnswer(answer, true)
		return
	}
	if p.printedAnswer < len(answer) {
		fmt.Print(answer[p.printedAnswer:])
	}
	fmt.Println()
}

func (p *streamPrinter) newline() {
	if p.wrote {
		fmt.Println()
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes a slash command. Returns false when the
// REPL should exit.
func handleSlashCommand(cmd string, deps Deps, session *chat.Session) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	rest := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printChatHelp()
		return true, nil

	case "/new", "/n":
		if err := session.NewChat(); err != nil {
			return true, err
		}
		fmt.Println(InfoStyle.Render("[new chat]"))
		return true, nil

	case "/chats":
		printChatList(deps, session)
		return true, nil

	case "/open", "/o":
		if len(rest) == 0 {
			return true, fmt.Errorf("usage: /open <number|id>")
		}
		return true, openChat(deps, session, rest[0])

	case "/model", "/m":
		return true, switchModel(deps, rest)

	case "/clear", "/c":
		id := session.ChatID()
		if id == "" {
			fmt.Println(DimStyle.Render("[nothing to clear]"))
			return true, nil
		}
		if !deps.Store.DeleteChat(id) {
			return true, fmt.Errorf("could not delete the chat")
		}
		if err := session.NewChat(); err != nil {
			return true, err
		}
		fmt.Println(InfoStyle.Render("[chat deleted]"))
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", command)
	}
}

func printChatHelp() {
	rows := [][2]string{
		{"/new", "Start a new chat"},
		{"/chats", "List saved chats"},
		{"/open <n>", "Resume a saved chat"},
		{"/model [name]", "Show or switch model"},
		{"/clear", "Delete the current chat"},
		{"/quit", "Exit"},
	}
	fmt.Println(TitleStyle.Render("Commands"))
	for _, row := range rows {
		fmt.Printf("  %s %s\n", LabelStyle.Render(row[0]), DimStyle.Render(row[1]))
	}
}

func printChatList(deps Deps, session *chat.Session) {
	chats := deps.Store.LoadChatHistory()
	if len(chats) == 0 {
		fmt.Println(DimStyle.Render("[no saved chats]"))
		return
	}
	current := session.ChatID()
	for i, c := range chats {
		marker := " "
		if c.ID == current {
			marker = SuccessStyle.Render("*")
		}
		fmt.Printf("%s %2d  %s  %s\n",
			marker, i+1,
			ValueStyle.Render(c.Title),
			DimStyle.Render(c.TimestampLabel))
	}
}

// openChat resolves ref as a 1-based list index or a chat ID and resumes
// that conversation.
func openChat(deps Deps, session *chat.Session, ref string) error {
	chats := deps.Store.LoadChatHistory()
	id := ref
	var n int
	if _, err := fmt.Sscanf(ref, "%d", &n); err == nil && n >= 1 && n <= len(chats) {
		id = chats[n-1].ID
	}
	if err := session.SelectChat(id); err != nil {
		return fmt.Errorf("no chat %q", ref)
	}

	// Replay the stored transcript so the user has context.
	for _, m := range session.Messages() {
		label := PromptStyle.Render("you>")
		if m.Role != model.RoleUser {
			label = InfoStyle.Render("model>")
		}
		if m.IsError {
			label = ErrorStyle.Render("error>")
		}
		fmt.Printf("%s %s\n", label, m.Content)
	}
	return nil
}

func switchModel(deps Deps, rest []string) error {
	cfg := deps.Client.GetConfig()
	if len(rest) == 0 {
		fmt.Printf("%s %s\n", LabelStyle.Render("Model"), ValueStyle.Render(cfg.DefaultModel))
		return nil
	}

	name := rest[0]
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout)
	defer cancel()
	if !deps.Client.ModelAvailable(ctx, name) {
		fmt.Fprintf(os.Stderr, "%s model %q is not installed; `chatrun pull %s` to fetch it\n",
			WarningStyle.Render("[warning]"), name, name)
	}
	cfg.DefaultModel = name
	fmt.Printf("%s switched to %s\n", SuccessStyle.Render("[ok]"), name)
	return nil
}

func printWelcome(deps Deps) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("chatrun"))
	fmt.Println(RenderSeparator(30))
	fmt.Printf("%s %s\n", LabelStyle.Render("Model"), ValueStyle.Render(deps.Client.GetConfig().DefaultModel))
	fmt.Printf("%s %s\n", LabelStyle.Render("Server"), ValueStyle.Render(deps.Client.GetConfig().BaseURL))
	fmt.Println(DimStyle.Render("Type /help for commands, Ctrl+C cancels a response."))
	fmt.Println()
}
