// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// The client covers liveness probing, model listing and pulling, and chat
// and generate completions in both streaming (NDJSON) and non-streaming
// form. Streaming responses are exposed as a pull-based Stream cursor:
//
//	stream, err := client.ChatStream(ctx, messages, nil)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    render(chunk.Fragment)
//	}
//
// Errors are typed: every failure is a *ClientError whose Type
// distinguishes unreachable server, timeout, missing model, bad status,
// malformed body, and caller cancellation. Cancellation is an expected
// outcome, checked with IsCancelled, not a fault.
package ollama
