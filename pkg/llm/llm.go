// Package llm streams completions from the upstream model as separate
// reasoning and content fragments.
package llm

import "context"

// Fragment is one delta of model output.
type Fragment struct {
	// Reasoning is set for the model's thinking trace and clear for the
	// answer text.
	Reasoning bool
	Text      string
}

// Request carries the prompts for one completion.
type Request struct {
	System string
	User   string
}

// Streamer produces a completion incrementally. fn is called once per
// fragment, in order; a non-nil return from fn stops the stream and is
// returned from Stream.
type Streamer interface {
	Stream(ctx context.Context, req Request, fn func(Fragment) error) error
}

// StreamerFunc adapts a function to Streamer.
type StreamerFunc func(ctx context.Context, req Request, fn func(Fragment) error) error

func (f StreamerFunc) Stream(ctx context.Context, req Request, fn func(Fragment) error) error {
	return f(ctx, req, fn)
}
