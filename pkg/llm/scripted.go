package llm

import (
	"context"
	"time"
)

// Scripted replays a fixed sequence of fragments. It backs the demo server
// and tests that need a deterministic upstream.
type Scripted struct {
	Fragments []Fragment

	// Delay is the pause before each fragment.
	Delay time.Duration

	// Err, when set, is returned after every fragment has been sent.
	Err error
}

func (s *Scripted) Stream(ctx context.Context, _ Request, fn func(Fragment) error) error {
	for _, frag := range s.Fragments {
		if s.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := fn(frag); err != nil {
			return err
		}
	}
	return s.Err
}

// Demo returns a short scripted training dialog.
func Demo(delay time.Duration) *Scripted {
	return &Scripted{
		Delay: delay,
		Fragments: []Fragment{
			{Reasoning: true, Text: "The trainee opens, "},
			{Reasoning: true, Text: "then the customer raises the late parcel. "},
			{Reasoning: true, Text: "Keep turns alternating."},
			{Text: "agent: Hello, how can I help you today?\n"},
			{Text: "customer: My parcel is a week late and I want a refund.\n"},
			{Text: "agent: I'm sorry about the delay. Let me check the tracking for you.\n"},
			{Text: "customer: Fine, but I need an answer today.\n"},
		},
	}
}
