// Package sse provides a minimal, purpose-built line reader for the
// "data: "-framed event streams returned by the generation service.
//
// The transport may split or merge logical lines at any byte offset. The
// reader reassembles complete lines and never yields a partial one: a trailing
// unterminated remainder at end of stream is discarded and only counted.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DataPrefix marks a line as an event frame. Every other line is a non-event
// (blank separator, comment, keep-alive).
const DataPrefix = "data: "

// TeeReader reads complete lines from a source io.Reader while writing each
// complete line, newline included, verbatim to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │       line       │
// └──────────────────┘
//
// The destination only ever sees material that was also yielded, so a
// transcript written through it is exactly the set of complete lines.
type TeeReader struct {
	br   *bufio.Reader
	dest io.Writer

	discarded int
	err       error
}

// NewReader returns a TeeReader that writes nothing.
func NewReader(src io.Reader) *TeeReader {
	return NewTeeReader(src, io.Discard)
}

// NewTeeReader returns a TeeReader that reads lines from src and writes every
// complete line through to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	if dest == nil {
		dest = io.Discard
	}

	return &TeeReader{
		br:   bufio.NewReaderSize(src, 64*1024),
		dest: dest,
	}
}

// Next returns the next complete line with its "\n" (and an optional "\r")
// removed. It blocks until a full line is available.
//
// Next returns io.EOF once the source is exhausted. Any other error from the
// source is wrapped and returned; after an error every further call returns
// the same error.
func (r *TeeReader) Next() (string, error) {
	if r.err != nil {
		return "", r.err
	}

	// ReadString grows past the bufio buffer, so lines have no length ceiling.
	line, err := r.br.ReadString('\n')
	if err != nil {
		// Whatever was read without a terminator cannot be a complete frame.
		r.discarded += len(line)
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
		} else {
			r.err = fmt.Errorf("reading stream: %w", err)
		}
		return "", r.err
	}

	if _, err := io.WriteString(r.dest, line); err != nil {
		r.err = fmt.Errorf("writing tee destination: %w", err)
		return "", r.err
	}

	line = strings.TrimSuffix(line[:len(line)-1], "\r")
	return line, nil
}

// Discarded reports how many bytes of unterminated trailing input were
// dropped when the stream ended.
func (r *TeeReader) Discarded() int {
	return r.discarded
}

// Frame reports whether line is an event frame and, if so, returns its
// payload: everything after DataPrefix.
func Frame(line string) (string, bool) {
	return strings.CutPrefix(line, DataPrefix)
}
