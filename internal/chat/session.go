// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates chat sessions over the Ollama client and the
// store.
package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/chatrun-tui/internal/model"
	"github.com/jeranaias/chatrun-tui/internal/ollama"
	"github.com/jeranaias/chatrun-tui/internal/segment"
	"github.com/jeranaias/chatrun-tui/internal/store"
)

// ErrBusy is returned when a send is attempted while another completion is
// still in flight.
var ErrBusy = errors.New("a completion is already in flight")

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Status classifies how a send settled.
type Status int

const (
	// StatusSuccess: the stream completed and the exchange was committed.
	StatusSuccess Status = iota
	// StatusError: transport or server failure; an error message was
	// committed in place of the answer.
	StatusError
	// StatusCancelled: the caller aborted the stream. Silent: nothing is
	// committed and no error is surfaced.
	StatusCancelled
)

// Outcome is the settled result of one send.
type Outcome struct {
	Status   Status
	Answer   string
	Thinking string
	ErrText  string
	ChatID   string
}

// =============================================================================
// EVENTS
// =============================================================================

// Events carries the session's live output channels. All callbacks are
// optional and are invoked from the goroutine driving Send.
type Events struct {
	// OnState fires on every state transition.
	OnState func(State)

	// OnAnswer publishes the current answer portion, tag-free, as it
	// grows during streaming.
	OnAnswer func(string)

	// OnThinking publishes the current reasoning portion.
	OnThinking func(string)

	// OnStorageError reports a persistence failure as a non-blocking
	// banner. Completion output is unaffected.
	OnStorageError func(string)
}

func (e Events) state(s State) {
	if e.OnState != nil {
		e.OnState(s)
	}
}

func (e Events) answer(text string) {
	if e.OnAnswer != nil {
		e.OnAnswer(text)
	}
}

func (e Events) thinking(text string) {
	if e.OnThinking != nil {
		e.OnThinking(text)
	}
}

func (e Events) storageError(msg string) {
	if e.OnStorageError != nil {
		e.OnStorageError(msg)
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives one conversation. Safe for concurrent use: Send blocks
// the calling goroutine while Cancel may be called from another.
type Session struct {
	client *ollama.Client
	store  *store.Store
	events Events
	log    *log.Logger

	mu     sync.Mutex
	state  State
	chat   *model.ChatRecord
	cancel context.CancelFunc
}

// NewSession creates a session with no chat selected. A nil logger
// discards diagnostics.
func NewSession(client *ollama.Client, st *store.Store, events Events, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		client: client,
		store:  st,
		events: events,
		log:    logger,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ChatID returns the current chat's id, or empty when no chat is active.
func (s *Session) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil {
		return ""
	}
	return s.chat.ID
}

// SelectChat resumes an existing chat. Rejected while a send is in flight.
func (s *Session) SelectChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	for _, c := range s.store.LoadChatHistory() {
		if c.ID == id {
			chat := c
			s.chat = &chat
			return nil
		}
	}
	return errors.New("no such chat: " + id)
}

// NewChat detaches from the current chat so the next send starts a fresh
// conversation. Rejected while a send is in flight.
func (s *Session) NewChat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.chat = nil
	return nil
}

// Messages returns the stored conversation for the current chat.
func (s *Session) Messages() []model.Message {
	id := s.ChatID()
	if id == "" {
		return nil
	}
	return s.store.LoadMessages(id)
}

// Cancel aborts the in-flight send, if any. The send settles silently.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// SEND
// =============================================================================

// begin claims the session for a send. Only an idle session can be claimed.
func (s *Session) begin(cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.state = StateSending
	s.cancel = cancel
	return nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.events.state(state)
}

// release returns the session to Idle after the outcome has been delivered.
func (s *Session) release() {
	s.mu.Lock()
	s.state = StateIdle
	s.cancel = nil
	s.mu.Unlock()
	s.events.state(StateIdle)
}

// Send runs one full exchange: persist the user message, stream the
// completion, publish live thinking/answer updates, and commit the result.
// It blocks until the send settles and returns the outcome. The session is
// idle again by the time Send returns, so a new send is immediately
// accepted - including after cancellation.
//
// Transport and server failures settle as StatusError with the error text
// committed as the assistant message; they are never returned as a Go
// error. The error return only reports a rejected send (ErrBusy).
func (s *Session) Send(ctx context.Context, text string) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	if err := s.begin(cancel); err != nil {
		cancel()
		return Outcome{}, err
	}
	defer s.release()
	defer cancel()
	s.events.state(StateSending)

	chat := s.ensureChat(text)
	userMsg := model.NewUserMessage(text)
	if !s.store.AddMessage(chat.ID, userMsg) {
		s.events.storageError("Could not save your message; it will be lost on restart.")
	}

	messages := s.wireHistory(chat.ID)
	stream, err := s.client.ChatStream(ctx, messages, nil)
	if err != nil {
		return s.settle(ctx, chat, "", err), nil
	}
	defer stream.Close()

	s.setState(StateStreaming)

	var accumulated strings.Builder
	var result segment.Result
	for {
		chunk, chunkErr := stream.Next()
		if chunkErr == io.EOF {
			break
		}
		if chunkErr != nil {
			return s.settle(ctx, chat, result.Answer, chunkErr), nil
		}

		accumulated.WriteString(chunk.Fragment)
		result = segment.Split(accumulated.String())
		s.events.answer(result.Answer)
		s.events.thinking(result.Thinking)

		if chunk.Final {
			break
		}
	}

	return s.settle(ctx, chat, result.Answer, nil), nil
}

// ensureChat returns the active chat record, creating and persisting one
// from the first message of a fresh conversation.
func (s *Session) ensureChat(firstMessage string) *model.ChatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil {
		chat := model.NewChatRecord(firstMessage)
		s.chat = &chat
		if !s.store.AddChat(chat) {
			s.events.storageError("Could not save the new chat.")
		}
	}
	return s.chat
}

// wireHistory converts the stored conversation to wire messages. Error
// messages are display artifacts and stay out of the model's context.
func (s *Session) wireHistory(chatID string) []ollama.Message {
	stored := s.store.LoadMessages(chatID)
	wire := make([]ollama.Message, 0, len(stored))
	for _, m := range stored {
		if m.IsError {
			continue
		}
		wire = append(wire, ollama.Message{Role: m.Role.String(), Content: m.Content})
	}
	return wire
}

// settle finishes a send: classify the ending, commit the assistant
// message, and update the chat record.
func (s *Session) settle(ctx context.Context, chat *model.ChatRecord, answer string, streamErr error) Outcome {
	s.setState(StateSettled)

	switch {
	case streamErr == nil && ctx.Err() == nil:
		answer = segment.StripTags(answer)
		if !s.store.AddMessage(chat.ID, model.NewAssistantMessage(answer)) {
			s.events.storageError("Could not save the reply.")
		}
		s.touchChat(chat, answer)
		return Outcome{Status: StatusSuccess, Answer: answer, ChatID: chat.ID}

	case ollama.IsCancelled(streamErr) || ctx.Err() != nil:
		// Silent: no message committed, no banner raised.
		s.log.Printf("send cancelled for chat %s", chat.ID)
		return Outcome{Status: StatusCancelled, ChatID: chat.ID}

	default:
		errText := humanError(streamErr)
		if !s.store.AddMessage(chat.ID, model.NewErrorMessage(errText)) {
			s.events.storageError("Could not save the error details.")
		}
		s.touchChat(chat, errText)
		return Outcome{Status: StatusError, ErrText: errText, ChatID: chat.ID}
	}
}

// touchChat refreshes the chat record's preview and timestamps after an
// exchange.
func (s *Session) touchChat(chat *model.ChatRecord, lastMessage string) {
	chat.Touch(lastMessage)
	ok := s.store.UpdateChat(chat.ID, store.ChatPatch{
		Preview:        &chat.Preview,
		TimestampLabel: &chat.TimestampLabel,
		LastMessageAt:  chat.LastMessageAt,
	})
	if !ok {
		s.events.storageError("Could not update the chat list.")
	}
}

// humanError renders a client failure as the inline message shown to the
// user.
func humanError(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "The model server is not reachable. Is Ollama running?"
	case ollama.IsTimeout(err):
		return "The model server took too long to respond."
	case ollama.IsModelNotFound(err):
		return "The requested model is not available. Pull it first with: chatrun pull <model>"
	case err != nil:
		return "The request failed: " + err.Error()
	default:
		return "The request failed."
	}
}
