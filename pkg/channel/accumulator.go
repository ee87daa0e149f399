// Package channel holds the per-channel text buffers of a generation session.
package channel

import (
	"strings"

	"github.com/papercomputeco/rehearse/pkg/stream"
)

// Accumulator keeps one append-only buffer per stream.Kind. Fragments are
// kept in arrival order with no trimming, merging, or deduplication.
//
// An Accumulator has a single writer. It is not safe for concurrent use; the
// session controller serializes access and hands readers copies.
type Accumulator struct {
	reasoning strings.Builder
	content   strings.Builder
}

// Append concatenates text onto the buffer for kind.
func (a *Accumulator) Append(kind stream.Kind, text string) {
	a.buffer(kind).WriteString(text)
}

// Apply appends a decoded record to its channel.
func (a *Accumulator) Apply(rec stream.Record) {
	a.Append(rec.Kind, rec.Text)
}

// Reset clears both buffers.
func (a *Accumulator) Reset() {
	a.reasoning.Reset()
	a.content.Reset()
}

// Text returns the full text of the buffer for kind. Returned strings stay
// valid and unchanged across later appends and resets.
func (a *Accumulator) Text(kind stream.Kind) string {
	return a.buffer(kind).String()
}

// Len returns the byte length of the buffer for kind.
func (a *Accumulator) Len(kind stream.Kind) int {
	return a.buffer(kind).Len()
}

func (a *Accumulator) buffer(kind stream.Kind) *strings.Builder {
	if kind == stream.Reasoning {
		return &a.reasoning
	}
	return &a.content
}
