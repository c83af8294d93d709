// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ndjson decodes newline-delimited JSON streams.
package ndjson

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// ERRORS
// =============================================================================

// ReadError wraps a transport failure that occurred mid-stream. Records
// decoded before the failure remain valid.
type ReadError struct {
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("stream read failed: %v", e.Cause)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

// IsReadError checks if an error is a mid-stream transport failure.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder reads an NDJSON byte stream and yields one complete record per
// call to Next. It handles records split across arbitrary read boundaries:
// bytes are buffered until a newline arrives, so a record cut mid-object is
// completed by later reads.
//
// Lines that are not valid JSON are skipped silently. A trailing partial
// line with no newline at end of stream is discarded.
type Decoder struct {
	r      *bufio.Reader
	closer io.Closer
	done   bool
}

// NewDecoder creates a Decoder reading from r. If r is an io.Closer, Close
// releases it.
func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// Next returns the next complete JSON record as raw bytes. It returns
// io.EOF when the stream is exhausted, or a *ReadError if the underlying
// read fails mid-stream.
func (d *Decoder) Next() (json.RawMessage, error) {
	if d.done {
		return nil, io.EOF
	}

	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			d.done = true
			if err == io.EOF {
				// An undelimited trailing fragment is by definition
				// incomplete, so it is dropped rather than parsed.
				return nil, io.EOF
			}
			return nil, &ReadError{Cause: err}
		}

		if rec := validRecord(line); rec != nil {
			return rec, nil
		}
		// Garbage line. Keep going.
	}
}

// Decode reads the next record and unmarshals it into v.
func (d *Decoder) Decode(v any) error {
	raw, err := d.Next()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Close releases the underlying reader if it is closeable. Safe to call
// multiple times.
func (d *Decoder) Close() error {
	d.done = true
	if d.closer != nil {
		c := d.closer
		d.closer = nil
		return c.Close()
	}
	return nil
}

// validRecord returns a copy of line if it contains a valid JSON value,
// nil otherwise. Blank lines are not records.
func validRecord(line []byte) json.RawMessage {
	trimmed := trimSpace(line)
	if len(trimmed) == 0 {
		return nil
	}
	if !json.Valid(trimmed) {
		return nil
	}
	rec := make(json.RawMessage, len(trimmed))
	copy(rec, trimmed)
	return rec
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
