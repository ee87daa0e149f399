// Package api serves the generation endpoints: it turns a scene form into a
// prompt, streams the upstream completion, and re-frames it as reasoning and
// content events.
package api

import "time"

// Config is the generation server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":5000")
	ListenAddr string

	// DialogTurns is used when a request does not carry a turn count.
	DialogTurns int

	// Timeout bounds one upstream completion. Zero means none.
	Timeout time.Duration
}
