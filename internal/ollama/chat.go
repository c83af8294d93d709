// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// =============================================================================
// COMPLETION OPTIONS
// =============================================================================

// CompletionOpts adjusts a single chat or generate call. The zero value
// uses the client's defaults.
type CompletionOpts struct {
	// Model overrides the configured default model.
	Model string

	// Options are per-call generation parameters, layered on top of the
	// built-in defaults and the per-model defaults from ClientConfig.
	Options Options
}

// builtinOptions is the bottom layer of the parameter stack.
var builtinOptions = Options{
	Temperature: 0.7,
	TopP:        0.9,
}

// resolveModel picks the effective model name for a call.
func (c *Client) resolveModel(opts *CompletionOpts) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return c.config.DefaultModel
}

// resolveOptions layers generation parameters: built-in defaults, then the
// model's configured defaults, then the per-call overrides.
func (c *Client) resolveOptions(model string, opts *CompletionOpts) *Options {
	merged := builtinOptions
	if modelOpts, ok := c.config.ModelOptions[model]; ok {
		merged = merged.merged(modelOpts)
	}
	if opts != nil {
		merged = merged.merged(opts.Options)
	}
	if merged.isZero() {
		return nil
	}
	return &merged
}

// withSystemPrompt prepends the configured system instruction unless the
// caller already supplied a system message, which is then sent verbatim.
func (c *Client) withSystemPrompt(messages []Message) []Message {
	if c.config.SystemPrompt == "" {
		return messages
	}
	for _, m := range messages {
		if m.Role == "system" {
			return messages
		}
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, NewSystemMessage(c.config.SystemPrompt))
	return append(out, messages...)
}

// checkModel verifies the model is locally available before a completion,
// so a missing model surfaces as ErrModelNotFound rather than a mid-request
// server error. The caller decides whether to pull and retry.
func (c *Client) checkModel(ctx context.Context, model string) error {
	if !c.ModelAvailable(ctx, model) {
		if err := ctx.Err(); err != nil {
			return transportError(ctx, err)
		}
		return ErrModelNotFound
	}
	return nil
}

// =============================================================================
// CHAT COMPLETIONS
// =============================================================================

// Chat sends a chat request and returns the complete response (non-streaming).
func (c *Client) Chat(ctx context.Context, messages []Message, opts *CompletionOpts) (*ChatResponse, error) {
	model := c.resolveModel(opts)
	if err := c.checkModel(ctx, model); err != nil {
		return nil, err
	}

	reqBody := ChatRequest{
		Model:    model,
		Messages: c.withSystemPrompt(messages),
		Stream:   false,
		Options:  c.resolveOptions(model, opts),
	}

	resp, err := c.postJSON(ctx, "/api/chat", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ErrTypeInvalidResponse, "chat request", resp)
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// ChatStream sends a streaming chat request and returns a Stream cursor
// over the response chunks. The caller must Close the stream.
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts *CompletionOpts) (*Stream, error) {
	model := c.resolveModel(opts)
	if err := c.checkModel(ctx, model); err != nil {
		return nil, err
	}

	reqBody := ChatRequest{
		Model:    model,
		Messages: c.withSystemPrompt(messages),
		Stream:   true,
		Options:  c.resolveOptions(model, opts),
	}

	return c.openStream(ctx, "/api/chat", reqBody, chatFragment)
}

// =============================================================================
// GENERATE COMPLETIONS
// =============================================================================

// Generate sends a single-prompt completion request (non-streaming).
// Unlike Chat, no system instruction is injected.
func (c *Client) Generate(ctx context.Context, prompt string, opts *CompletionOpts) (*GenerateResponse, error) {
	model := c.resolveModel(opts)
	if err := c.checkModel(ctx, model); err != nil {
		return nil, err
	}

	reqBody := GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.resolveOptions(model, opts),
	}

	resp, err := c.postJSON(ctx, "/api/generate", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ErrTypeInvalidResponse, "generate request", resp)
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// GenerateStream sends a streaming single-prompt completion request.
func (c *Client) GenerateStream(ctx context.Context, prompt string, opts *CompletionOpts) (*Stream, error) {
	model := c.resolveModel(opts)
	if err := c.checkModel(ctx, model); err != nil {
		return nil, err
	}

	reqBody := GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  true,
		Options: c.resolveOptions(model, opts),
	}

	return c.openStream(ctx, "/api/generate", reqBody, generateFragment)
}

// openStream issues a streaming POST and wraps the response body in a
// Stream cursor. Cancellation before any bytes are read surfaces from the
// Do call as ErrCancelled.
func (c *Client) openStream(ctx context.Context, path string, reqBody any, extract extractFunc) (*Stream, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		defer resp.Body.Close()
		return nil, ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(ErrTypeInvalidResponse, "stream request", resp)
	}

	return newStream(ctx, resp.Body, extract), nil
}
