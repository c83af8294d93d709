// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"strconv"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// GenerateRequest is the request body for the /api/generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// PullRequest is the request body for the /api/pull endpoint.
type PullRequest struct {
	Name string `json:"name"`
}

// ShowModelRequest is the request for the /api/show endpoint.
type ShowModelRequest struct {
	Name string `json:"name"`
}

// Options contains model parameters for inference. Zero-valued fields are
// omitted from the wire request and the server default applies; a non-zero
// field in a per-call Options overrides the per-model and built-in layers.
type Options struct {
	Temperature   float64  `json:"temperature,omitempty"`    // 0.0-2.0
	TopK          int      `json:"top_k,omitempty"`          // Default 40
	TopP          float64  `json:"top_p,omitempty"`          // 0.0-1.0
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"` // Default 1.1
	NumCtx        int      `json:"num_ctx,omitempty"`        // Context window size
	NumPredict    int      `json:"num_predict,omitempty"`    // Max tokens, -1 for unlimited
	Seed          int      `json:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

// merged returns o with every non-zero field of overlay applied on top.
func (o Options) merged(overlay Options) Options {
	if overlay.Temperature != 0 {
		o.Temperature = overlay.Temperature
	}
	if overlay.TopK != 0 {
		o.TopK = overlay.TopK
	}
	if overlay.TopP != 0 {
		o.TopP = overlay.TopP
	}
	if overlay.RepeatPenalty != 0 {
		o.RepeatPenalty = overlay.RepeatPenalty
	}
	if overlay.NumCtx != 0 {
		o.NumCtx = overlay.NumCtx
	}
	if overlay.NumPredict != 0 {
		o.NumPredict = overlay.NumPredict
	}
	if overlay.Seed != 0 {
		o.Seed = overlay.Seed
	}
	if len(overlay.Stop) > 0 {
		o.Stop = overlay.Stop
	}
	return o
}

// isZero reports whether no field is set.
func (o Options) isZero() bool {
	return o.Temperature == 0 && o.TopK == 0 && o.TopP == 0 &&
		o.RepeatPenalty == 0 && o.NumCtx == 0 && o.NumPredict == 0 &&
		o.Seed == 0 && len(o.Stop) == 0
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is a record from the /api/chat endpoint: the single response
// object when non-streaming, or one NDJSON record when streaming.
type ChatResponse struct {
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"created_at"`
	Message       Message   `json:"message"`
	Done          bool      `json:"done"`
	DoneReason    string    `json:"done_reason,omitempty"`
	TotalDuration int64     `json:"total_duration,omitempty"` // nanoseconds
	EvalCount     int       `json:"eval_count,omitempty"`     // tokens generated
	EvalDuration  int64     `json:"eval_duration,omitempty"`  // nanoseconds
}

// GenerateResponse is a record from the /api/generate endpoint.
type GenerateResponse struct {
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"created_at"`
	Response      string    `json:"response"`
	Done          bool      `json:"done"`
	DoneReason    string    `json:"done_reason,omitempty"`
	TotalDuration int64     `json:"total_duration,omitempty"`
	EvalCount     int       `json:"eval_count,omitempty"`
	EvalDuration  int64     `json:"eval_duration,omitempty"`
}

// PullProgress is one NDJSON record from a model pull.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Percent returns pull completion as 0-100, or -1 when the record carries
// no size information.
func (p PullProgress) Percent() float64 {
	if p.Total == 0 {
		return -1
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// ModelInfo contains catalog information about a model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelMetadata is the digest of an /api/show response.
type ModelMetadata struct {
	Name          string
	Family        string
	ParameterSize string
	Quantization  string
	ContextLength int64
	Template      string
	Parameters    string
}

// TestResult is the outcome of a connection probe.
type TestResult struct {
	Reachable bool
	Models    []ModelInfo // Populated when reachable
	Reason    string      // Populated when not reachable
}

// apiError is the error body Ollama returns on failed requests.
type apiError struct {
	Error string `json:"error"`
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// TokensPerSecond calculates the generation speed from a response.
func (r *ChatResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	return float64(r.EvalCount) / (float64(r.EvalDuration) / 1e9)
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case m.Size >= GB:
		return strconv.FormatFloat(float64(m.Size)/GB, 'f', 1, 64) + " GB"
	case m.Size >= MB:
		return strconv.FormatFloat(float64(m.Size)/MB, 'f', 1, 64) + " MB"
	case m.Size >= KB:
		return strconv.FormatFloat(float64(m.Size)/KB, 'f', 1, 64) + " KB"
	default:
		return strconv.FormatInt(m.Size, 10) + " B"
	}
}
