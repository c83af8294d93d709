// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jeranaias/chatrun-tui/internal/ndjson"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeModelList
	ErrTypeModelInfo
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeCancelled
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrCancelled     = &ClientError{Type: ErrTypeCancelled, Message: "request cancelled"}
)

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return false
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotRunning
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsCancelled checks if an error is a caller-initiated cancellation.
// Cancellation is an expected outcome, not a fault.
func IsCancelled(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeCancelled
	}
	return errors.Is(err, context.Canceled)
}

// transportError maps a failed http.Client.Do into the error taxonomy.
func transportError(ctx context.Context, err error) *ClientError {
	switch {
	case ctx.Err() == context.Canceled || errors.Is(err, context.Canceled):
		return ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not reachable", Cause: err}
	}
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6 resolution issues on Windows
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// ProbeTimeout for connection tests (default: 5s)
	ProbeTimeout time.Duration

	// DefaultModel to use if none specified (default: "llama3.2")
	DefaultModel string

	// ModelOptions are per-model default generation parameters, layered
	// between the built-in defaults and per-call overrides.
	ModelOptions map[string]Options

	// SystemPrompt is injected into chat requests that carry no system
	// message of their own. Empty disables injection.
	SystemPrompt string
}

// DefaultSystemPrompt instructs the model to fence its reasoning and final
// answer so the segmenter can separate them.
const DefaultSystemPrompt = "Structure every reply in two parts: put your " +
	"reasoning between <think> and </think>, then put the final answer the " +
	"user should see between <answer> and </answer>."

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:11434",
		Timeout:      30 * time.Second,
		ProbeTimeout: 5 * time.Second,
		DefaultModel: "llama3.2",
		SystemPrompt: DefaultSystemPrompt,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
// It provides methods for health checks, model management, and chat operations.
//
// The Client is thread-safe for concurrent use, though callers are expected
// to drive at most one completion stream at a time.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client

	// Streaming requests get a client without a global timeout; the
	// request context governs their lifetime instead.
	streamClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "llama3.2"
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// DefaultModel returns the current default model.
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// postJSON issues a POST with a JSON body using the non-streaming client.
func (c *Client) postJSON(ctx context.Context, path string, reqBody any) (*http.Response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return resp, nil
}

// statusError reads an Ollama error body for a non-2xx response, falling
// back to the HTTP status line.
func statusError(errType ErrorType, operation string, resp *http.Response) *ClientError {
	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return &ClientError{Type: errType, Message: apiErr.Error}
	}
	return &ClientError{Type: errType, Message: operation + " failed: " + resp.Status}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}

	return nil
}

// TestConnection probes the server with a short timeout and reports the
// outcome as data rather than an error: either the server is reachable with
// its model catalog, or it is not with a human-readable reason.
func (c *Client) TestConnection(ctx context.Context) TestResult {
	probeCtx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	models, err := c.ListModels(probeCtx)
	if err != nil {
		return TestResult{Reachable: false, Reason: err.Error()}
	}
	return TestResult{Reachable: true, Models: models}
}

// StartOllama attempts to start the Ollama server if it's not running.
// Returns nil if Ollama is already running or was successfully started.
// The actual start logic is platform-specific (see start_windows.go and start_unix.go).
func (c *Client) StartOllama(ctx context.Context) error {
	if err := c.CheckRunning(ctx); err == nil {
		return nil
	}
	return c.startOllamaProcess(ctx)
}

// EnsureRunning checks if Ollama is running, and starts it if not.
func (c *Client) EnsureRunning(ctx context.Context) error {
	if err := c.CheckRunning(ctx); err == nil {
		return nil
	}
	return c.StartOllama(ctx)
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all available models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ErrTypeModelList, "list models", resp)
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode model list", Cause: err}
	}

	return result.Models, nil
}

// ModelAvailable checks if a model is present in the local catalog.
// A failed listing yields false rather than an error.
func (c *Client) ModelAvailable(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// PullProgressFunc receives one decoded progress record per NDJSON line
// during a model pull.
type PullProgressFunc func(PullProgress)

// PullModel downloads a model, reporting progress through onProgress.
// Malformed progress records are skipped, not fatal.
func (c *Client) PullModel(ctx context.Context, name string, onProgress PullProgressFunc) error {
	body, err := json.Marshal(PullRequest{Name: name})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls can run for minutes; the context bounds them, not the client
	// timeout.
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return statusError(ErrTypeInvalidResponse, "pull", resp)
	}

	dec := ndjson.NewDecoder(resp.Body)
	defer dec.Close()

	for {
		raw, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return transportError(ctx, err)
		}
		var progress PullProgress
		if json.Unmarshal(raw, &progress) != nil {
			// Valid JSON that is not a progress record. Skip it the
			// same way the decoder skips malformed lines.
			continue
		}
		if onProgress != nil {
			onProgress(progress)
		}
	}
}

// ShowModel fetches model metadata from /api/show. The response shape
// varies across Ollama versions, so fields are extracted tolerantly and
// missing ones stay zero.
func (c *Client) ShowModel(ctx context.Context, name string) (*ModelMetadata, error) {
	resp, err := c.postJSON(ctx, "/api/show", ShowModelRequest{Name: name})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ErrTypeModelInfo, "show model", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read model info", Cause: err}
	}
	if !gjson.ValidBytes(body) {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed model info response"}
	}

	doc := gjson.ParseBytes(body)
	meta := &ModelMetadata{
		Name:          name,
		Family:        doc.Get("details.family").String(),
		ParameterSize: doc.Get("details.parameter_size").String(),
		Quantization:  doc.Get("details.quantization_level").String(),
		Template:      doc.Get("template").String(),
		Parameters:    doc.Get("parameters").String(),
	}

	// Context length lives under model_info with an architecture-specific
	// key, e.g. "llama.context_length".
	doc.Get("model_info").ForEach(func(key, value gjson.Result) bool {
		if strings.HasSuffix(key.String(), ".context_length") {
			meta.ContextLength = value.Int()
			return false
		}
		return true
	})

	return meta, nil
}
