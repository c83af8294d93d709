// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeServer builds an httptest server that answers /api/tags with the
// given models and delegates other paths to handler.
func fakeServer(t *testing.T, models []string, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		var infos []ModelInfo
		for _, name := range models {
			infos = append(infos, ModelInfo{Name: name})
		}
		json.NewEncoder(w).Encode(ListModelsResponse{Models: infos})
	})
	if handler != nil {
		mux.HandleFunc("/", handler)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClientWithConfig(&ClientConfig{
		BaseURL:      srv.URL,
		DefaultModel: "llama3.2",
		SystemPrompt: DefaultSystemPrompt,
	})
	return srv, client
}

func writeNDJSON(w http.ResponseWriter, lines ...string) {
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		io.WriteString(w, line+"\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// =============================================================================
// CONNECTION TESTS
// =============================================================================

func TestTestConnection_Reachable(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2", "qwen2.5"}, nil)

	result := client.TestConnection(context.Background())
	if !result.Reachable {
		t.Fatalf("not reachable: %s", result.Reason)
	}
	if len(result.Models) != 2 {
		t.Errorf("got %d models, want 2", len(result.Models))
	}
}

func TestTestConnection_Unreachable(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{
		BaseURL:      "http://127.0.0.1:1", // nothing listens here
		ProbeTimeout: 500 * time.Millisecond,
	})

	result := client.TestConnection(context.Background())
	if result.Reachable {
		t.Fatal("expected unreachable")
	}
	if result.Reason == "" {
		t.Error("missing reason")
	}
}

// =============================================================================
// MODEL OPERATION TESTS
// =============================================================================

func TestListModels_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	_, err := client.ListModels(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeModelList {
		t.Errorf("err = %v, want ErrTypeModelList", err)
	}
}

func TestModelAvailable(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, nil)

	if !client.ModelAvailable(context.Background(), "llama3.2") {
		t.Error("listed model reported unavailable")
	}
	if client.ModelAvailable(context.Background(), "missing:7b") {
		t.Error("unlisted model reported available")
	}
}

func TestModelAvailable_FalseWhenListingFails(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 500 * time.Millisecond,
	})
	if client.ModelAvailable(context.Background(), "llama3.2") {
		t.Error("availability must be false when listing fails")
	}
}

func TestPullModel_Progress(t *testing.T) {
	_, client := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		writeNDJSON(w,
			`{"status":"pulling manifest"}`,
			`not json at all`,
			`{"status":"downloading","total":100,"completed":50}`,
			`{"status":"success"}`,
		)
	})

	var statuses []string
	err := client.PullModel(context.Background(), "llama3.2", func(p PullProgress) {
		statuses = append(statuses, p.Status)
	})
	if err != nil {
		t.Fatalf("PullModel failed: %v", err)
	}
	// The malformed line is skipped, not fatal.
	if len(statuses) != 3 {
		t.Fatalf("got %d progress records, want 3: %v", len(statuses), statuses)
	}
	if statuses[2] != "success" {
		t.Errorf("last status = %q", statuses[2])
	}
}

func TestPullModel_SkipsWrongShapeRecords(t *testing.T) {
	_, client := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			http.NotFound(w, r)
			return
		}
		writeNDJSON(w,
			`{"status":"pulling manifest"}`,
			`{"status":12345}`,
			`{"status":"success"}`,
		)
	})

	var statuses []string
	err := client.PullModel(context.Background(), "llama3.2", func(p PullProgress) {
		statuses = append(statuses, p.Status)
	})
	if err != nil {
		t.Fatalf("PullModel failed: %v", err)
	}
	// Valid JSON with the wrong shape is skipped like a malformed line.
	if len(statuses) != 2 {
		t.Fatalf("got %d progress records, want 2: %v", len(statuses), statuses)
	}
	if statuses[1] != "success" {
		t.Errorf("last status = %q", statuses[1])
	}
}

func TestShowModel(t *testing.T) {
	_, client := fakeServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/show" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{
			"template": "{{ .Prompt }}",
			"details": {"family": "llama", "parameter_size": "3B", "quantization_level": "Q4_K_M"},
			"model_info": {"llama.context_length": 131072}
		}`)
	})

	meta, err := client.ShowModel(context.Background(), "llama3.2")
	if err != nil {
		t.Fatalf("ShowModel failed: %v", err)
	}
	if meta.Family != "llama" || meta.ParameterSize != "3B" {
		t.Errorf("details = %+v", meta)
	}
	if meta.ContextLength != 131072 {
		t.Errorf("ContextLength = %d", meta.ContextLength)
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_InjectsSystemPrompt(t *testing.T) {
	var got ChatRequest
	_, client := fakeServer(t, []string{"llama3.2"}, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ChatResponse{
			Message: Message{Role: "assistant", Content: "<answer>4</answer>"},
			Done:    true,
		})
	})

	messages := []Message{NewUserMessage("What is 2+2?")}
	resp, err := client.Chat(context.Background(), messages, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content == "" {
		t.Error("empty response content")
	}

	if len(got.Messages) != 2 {
		t.Fatalf("got %d wire messages, want 2 (system + user)", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != DefaultSystemPrompt {
		t.Errorf("injected system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Content != "What is 2+2?" {
		t.Errorf("user message altered: %+v", got.Messages[1])
	}
}

func TestChat_CallerSystemMessageSentVerbatim(t *testing.T) {
	var got ChatRequest
	_, client := fakeServer(t, []string{"llama3.2"}, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ChatResponse{Done: true})
	})

	messages := []Message{
		NewSystemMessage("You are a pirate."),
		NewUserMessage("hi"),
	}
	if _, err := client.Chat(context.Background(), messages, nil); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("message count changed: got %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Content != "You are a pirate." {
		t.Errorf("caller system message altered: %q", got.Messages[0].Content)
	}
}

func TestChat_ModelNotFound(t *testing.T) {
	_, client := fakeServer(t, []string{"other-model"}, nil)

	_, err := client.Chat(context.Background(), []Message{NewUserMessage("hi")}, nil)
	if !IsModelNotFound(err) {
		t.Fatalf("err = %v, want model-not-found", err)
	}
}

func TestChat_ServerErrorBody(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"model requires more system memory"}`)
	})

	_, err := client.Chat(context.Background(), []Message{NewUserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "model requires more system memory" {
		t.Errorf("error = %q, want server-provided message", err.Error())
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func chatStreamHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		writeNDJSON(w, lines...)
	}
}

func TestChatStream_Chunks(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, chatStreamHandler(
		`{"model":"llama3.2","message":{"role":"assistant","content":"<think>hm"},"done":false}`,
		`{"message":{"content":"</think>"},"done":false}`,
		`{"message":{"content":"<answer>4</answer>"},"done":true,"eval_count":12}`,
	))

	stream, err := client.ChatStream(context.Background(), []Message{NewUserMessage("2+2?")}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	defer stream.Close()

	var fragments []string
	var sawFinal bool
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		fragments = append(fragments, chunk.Fragment)
		if chunk.Final {
			sawFinal = true
			if chunk.EvalCount != 12 {
				t.Errorf("EvalCount = %d", chunk.EvalCount)
			}
		}
	}

	if len(fragments) != 3 {
		t.Fatalf("got %d fragments, want 3: %v", len(fragments), fragments)
	}
	if !sawFinal {
		t.Error("final chunk not marked")
	}

	// Single-pass: the cursor stays exhausted.
	if _, err := stream.Next(); err != io.EOF {
		t.Errorf("Next after exhaustion = %v, want io.EOF", err)
	}
}

func TestChatStream_Collect(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, chatStreamHandler(
		`{"message":{"content":"hello "},"done":false}`,
		`{"message":{"content":"world"},"done":true}`,
	))

	stream, err := client.ChatStream(context.Background(), []Message{NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	defer stream.Close()

	text, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
}

func TestChatStream_CancelMidStream(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, func(w http.ResponseWriter, r *http.Request) {
		writeNDJSON(w, `{"message":{"content":"partial"},"done":false}`)
		// Hold the connection open until the client gives up.
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.ChatStream(ctx, []Message{NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Next(); err != nil {
		t.Fatalf("first chunk failed: %v", err)
	}

	cancel()
	_, err = stream.Next()
	if !IsCancelled(err) {
		t.Fatalf("err after cancel = %v, want cancelled", err)
	}
}

func TestChatStream_DeadlineMidStream(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, func(w http.ResponseWriter, r *http.Request) {
		writeNDJSON(w, `{"message":{"content":"partial"},"done":false}`)
		// Hold the connection open past the deadline.
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	stream, err := client.ChatStream(ctx, []Message{NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Next(); err != nil {
		t.Fatalf("first chunk failed: %v", err)
	}

	_, err = stream.Next()
	if !IsTimeout(err) {
		t.Fatalf("err after deadline = %v, want timeout", err)
	}
	if IsCancelled(err) {
		t.Fatal("mid-stream deadline must not read as cancellation")
	}
}

func TestChatStream_CancelBeforeRequest(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, chatStreamHandler(
		`{"message":{"content":"x"},"done":true}`,
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ChatStream(ctx, []Message{NewUserMessage("hi")}, nil)
	if !IsCancelled(err) {
		t.Fatalf("err = %v, want cancelled", err)
	}
}

func TestGenerateStream_UsesResponseField(t *testing.T) {
	_, client := fakeServer(t, []string{"llama3.2"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "say hi" {
			http.Error(w, "wrong prompt", http.StatusBadRequest)
			return
		}
		writeNDJSON(w,
			`{"response":"hi","done":false}`,
			`{"response":" there","done":true}`,
		)
	})

	stream, err := client.GenerateStream(context.Background(), "say hi", nil)
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	defer stream.Close()

	text, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if text != "hi there" {
		t.Errorf("text = %q", text)
	}
}

// =============================================================================
// OPTION LAYERING TESTS
// =============================================================================

func TestResolveOptions_Layering(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{
		DefaultModel: "llama3.2",
		ModelOptions: map[string]Options{
			"llama3.2": {Temperature: 0.2, NumCtx: 8192},
		},
	})

	opts := client.resolveOptions("llama3.2", &CompletionOpts{
		Options: Options{Temperature: 1.5},
	})
	if opts == nil {
		t.Fatal("nil options")
	}
	if opts.Temperature != 1.5 {
		t.Errorf("per-call override lost: Temperature = %v", opts.Temperature)
	}
	if opts.NumCtx != 8192 {
		t.Errorf("per-model default lost: NumCtx = %v", opts.NumCtx)
	}
	if opts.TopP != 0.9 {
		t.Errorf("built-in default lost: TopP = %v", opts.TopP)
	}
}

func TestResolveModel(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{DefaultModel: "default-model"})

	if got := client.resolveModel(nil); got != "default-model" {
		t.Errorf("resolveModel(nil) = %q", got)
	}
	if got := client.resolveModel(&CompletionOpts{Model: "explicit"}); got != "explicit" {
		t.Errorf("explicit model lost: %q", got)
	}
}

