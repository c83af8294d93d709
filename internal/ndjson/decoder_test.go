// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ndjson decodes newline-delimited JSON streams.
package ndjson

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkedReader yields its chunks one per Read call, simulating network
// reads that split records at arbitrary byte boundaries.
type chunkedReader struct {
	chunks []string
	closed bool
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *chunkedReader) Close() error {
	c.closed = true
	return nil
}

// failingReader returns its data, then a non-EOF error.
type failingReader struct {
	data string
	err  error
	sent bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, f.data), nil
	}
	return 0, f.err
}

func drain(t *testing.T, d *Decoder) ([]string, error) {
	t.Helper()
	var records []string
	for {
		raw, err := d.Next()
		if err != nil {
			return records, err
		}
		records = append(records, string(raw))
	}
}

func TestDecoder_SingleRecord(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"a":1}` + "\n"))
	records, err := drain(t, d)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if len(records) != 1 || records[0] != `{"a":1}` {
		t.Errorf("records = %v", records)
	}
}

func TestDecoder_RecordSplitAcrossChunks(t *testing.T) {
	// Second record is cut mid-object; the closing bytes arrive in the
	// next chunk.
	r := &chunkedReader{chunks: []string{"{\"a\":1}\n{\"b\":2", "}\n"}}
	d := NewDecoder(r)

	records, err := drain(t, d)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(records), records)
	}
	if records[0] != `{"a":1}` || records[1] != `{"b":2}` {
		t.Errorf("records = %v", records)
	}
}

func TestDecoder_SkipsMalformedLines(t *testing.T) {
	input := `{"a":1}` + "\n" + "not json\n" + `{"b":2}` + "\n"
	d := NewDecoder(strings.NewReader(input))

	records, err := drain(t, d)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(records), records)
	}
}

func TestDecoder_SkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"a":1}` + "\n\n"
	d := NewDecoder(strings.NewReader(input))

	records, err := drain(t, d)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestDecoder_DiscardsTrailingPartialLine(t *testing.T) {
	// Stream ends without a newline after the second object. The fragment
	// must be dropped even though it happens to be valid JSON.
	input := `{"a":1}` + "\n" + `{"b":2}`
	d := NewDecoder(strings.NewReader(input))

	records, err := drain(t, d)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if len(records) != 1 || records[0] != `{"a":1}` {
		t.Errorf("records = %v, want only first record", records)
	}
}

func TestDecoder_MidStreamFailure(t *testing.T) {
	cause := errors.New("connection reset")
	r := &failingReader{data: `{"a":1}` + "\n", err: cause}
	d := NewDecoder(r)

	raw, err := d.Next()
	if err != nil {
		t.Fatalf("first Next failed: %v", err)
	}
	if string(raw) != `{"a":1}` {
		t.Errorf("record = %s", raw)
	}

	_, err = d.Next()
	if !IsReadError(err) {
		t.Fatalf("err = %v, want *ReadError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error does not unwrap to cause")
	}
}

func TestDecoder_NextAfterEOF(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("second Next err = %v, want io.EOF", err)
	}
}

func TestDecoder_Decode(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"name":"llama3"}` + "\n"))

	var v struct {
		Name string `json:"name"`
	}
	if err := d.Decode(&v); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v.Name != "llama3" {
		t.Errorf("Name = %q", v.Name)
	}
}

func TestDecoder_CloseReleasesReader(t *testing.T) {
	r := &chunkedReader{chunks: []string{`{"a":1}` + "\n"}}
	d := NewDecoder(r)

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !r.closed {
		t.Error("underlying reader not closed")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("Next after Close = %v, want io.EOF", err)
	}
}
