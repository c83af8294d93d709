// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/jeranaias/chatrun-tui/internal/ndjson"
)

// =============================================================================
// STREAM CURSOR
// =============================================================================

// StreamChunk is one decoded fragment of a streaming completion.
type StreamChunk struct {
	// Fragment is the text carried by this chunk.
	Fragment string

	// Final marks the last chunk of the stream. Timing fields are only
	// populated on the final chunk.
	Final bool

	// Model that produced the stream.
	Model string

	DoneReason   string
	EvalCount    int
	EvalDuration int64 // nanoseconds
}

// extractFunc maps one raw NDJSON record to a StreamChunk. Chat and
// generate records carry their text under different fields.
type extractFunc func(raw json.RawMessage) (StreamChunk, bool)

// chatFragment decodes an /api/chat stream record.
func chatFragment(raw json.RawMessage) (StreamChunk, bool) {
	var rec ChatResponse
	if err := json.Unmarshal(raw, &rec); err != nil {
		return StreamChunk{}, false
	}
	return StreamChunk{
		Fragment:     rec.Message.Content,
		Final:        rec.Done,
		Model:        rec.Model,
		DoneReason:   rec.DoneReason,
		EvalCount:    rec.EvalCount,
		EvalDuration: rec.EvalDuration,
	}, true
}

// generateFragment decodes an /api/generate stream record.
func generateFragment(raw json.RawMessage) (StreamChunk, bool) {
	var rec GenerateResponse
	if err := json.Unmarshal(raw, &rec); err != nil {
		return StreamChunk{}, false
	}
	return StreamChunk{
		Fragment:     rec.Response,
		Final:        rec.Done,
		Model:        rec.Model,
		DoneReason:   rec.DoneReason,
		EvalCount:    rec.EvalCount,
		EvalDuration: rec.EvalDuration,
	}, true
}

// Stream is a pull-based cursor over a streaming completion. It is finite
// and single-pass: after the final chunk or an error, Next returns io.EOF
// forever. Not safe for concurrent use.
type Stream struct {
	ctx     context.Context
	dec     *ndjson.Decoder
	extract extractFunc
	done    bool
}

func newStream(ctx context.Context, body io.ReadCloser, extract extractFunc) *Stream {
	return &Stream{
		ctx:     ctx,
		dec:     ndjson.NewDecoder(body),
		extract: extract,
	}
}

// Next returns the next chunk. It returns io.EOF once the stream is
// exhausted, ErrCancelled when the request context is cancelled,
// ErrTimeout when its deadline expires mid-stream, and a connection
// ClientError on any other transport failure.
func (s *Stream) Next() (StreamChunk, error) {
	if s.done {
		return StreamChunk{}, io.EOF
	}

	for {
		raw, err := s.dec.Next()
		if err == io.EOF {
			s.finish()
			return StreamChunk{}, io.EOF
		}
		if err != nil {
			s.finish()
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					return StreamChunk{}, ErrTimeout
				}
				return StreamChunk{}, ErrCancelled
			}
			return StreamChunk{}, &ClientError{
				Type:    ErrTypeConnection,
				Message: "stream interrupted",
				Cause:   err,
			}
		}

		chunk, ok := s.extract(raw)
		if !ok {
			continue
		}
		if chunk.Final {
			s.finish()
		}
		return chunk, nil
	}
}

// Collect drains the stream and returns the concatenated text. Used by the
// non-interactive paths that do not render incrementally.
func (s *Stream) Collect() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Fragment)
	}
}

// Close releases the underlying connection. Safe to call multiple times
// and required on early abandonment.
func (s *Stream) Close() error {
	s.done = true
	return s.dec.Close()
}

// finish marks the cursor exhausted and releases the connection.
func (s *Stream) finish() {
	s.done = true
	s.dec.Close()
}
