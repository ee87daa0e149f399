// Package session drives generation sessions against the remote generation
// service and exposes their live state for rendering.
//
// A Controller owns one pair of channel buffers and at most one active
// session. Each session opens a streaming request, then a single goroutine
// pulls lines, decodes and classifies frames, and appends them to the
// buffers in order. Readers never touch the buffers; they receive Snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/papercomputeco/rehearse/pkg/channel"
	"github.com/papercomputeco/rehearse/pkg/sse"
	"github.com/papercomputeco/rehearse/pkg/stream"
)

// maxErrorBody caps how much of a non-success response body is kept.
const maxErrorBody = 4096

// Config holds what a Controller needs to reach the generation service.
type Config struct {
	// Target is the base URL of the generation service (scheme + host + port).
	Target string

	// Timeout bounds a whole session, streaming included. Zero means none.
	Timeout time.Duration
}

// Snapshot is an immutable view of the current session.
type Snapshot struct {
	ID        string
	Mode      Mode
	Status    Status
	Reasoning string
	Content   string
	Err       error
	Stats     stream.Stats
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// WithLogger sets the logger. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTracer wraps every session in a span from tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// WithMeter records session and frame counters on meter.
func WithMeter(meter metric.Meter) Option {
	return func(c *Controller) {
		c.meter = meter
	}
}

// WithTranscript copies every complete line received to w.
func WithTranscript(w io.Writer) Option {
	return func(c *Controller) {
		c.transcript = w
	}
}

// run is the bookkeeping for one session's stream loop.
type run struct {
	id     string
	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}

	// stopped is set under Controller.mu by Cancel. A stopped run must not
	// mutate controller state again.
	stopped bool
}

// Controller orchestrates generation sessions. It is safe for concurrent use.
type Controller struct {
	config     Config
	client     *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	metrics    metrics
	transcript io.Writer

	// beginMu serializes Start and Adjust so only one writer ever exists.
	beginMu sync.Mutex

	mu      sync.Mutex
	acc     channel.Accumulator
	run     *run
	status  Status
	err     error
	stats   stream.Stats
	updates chan Snapshot
}

// NewController returns an idle Controller.
func NewController(config Config, opts ...Option) *Controller {
	c := &Controller{
		config:  config,
		updates: make(chan Snapshot, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: config.Timeout}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	if c.meter == nil {
		c.meter = metricnoop.NewMeterProvider().Meter("")
	}
	c.metrics = newMetrics(c.meter, c.logger)

	return c
}

// Start begins a create session and returns its ID. Any in-flight session is
// cancelled first. The stream is driven in the background; observe it through
// Updates or Snapshot.
func (c *Controller) Start(ctx context.Context, params SceneParameters, file *Attachment) (string, error) {
	return c.begin(ctx, generationForm{
		mode:   ModeCreate,
		params: params,
		file:   file,
	})
}

// Adjust begins a session that rewrites priorContent according to
// instruction. It otherwise behaves like Start.
func (c *Controller) Adjust(ctx context.Context, params SceneParameters, priorContent, instruction string) (string, error) {
	return c.begin(ctx, generationForm{
		mode:        ModeAdjust,
		params:      params,
		prior:       priorContent,
		instruction: instruction,
	})
}

// Cancel stops the in-flight session, if any. The session ends Completed with
// whatever text had been accumulated, and Cancel returns only after the
// stream loop has let go of the connection.
func (c *Controller) Cancel() {
	c.mu.Lock()
	r := c.run
	if r == nil || r.stopped || c.status != Streaming {
		c.mu.Unlock()
		return
	}
	r.stopped = true
	c.status = Completed
	stats := c.stats
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("session cancelled", "id", r.id)
	c.metrics.finished(r.mode, Completed, stats)
	r.cancel()
	<-r.done
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Updates delivers a Snapshot after every state change. Delivery is
// latest-wins: a slow reader skips intermediate states but always receives
// the most recent one.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Wait blocks until the current session's stream loop has exited and returns
// the final state.
func (c *Controller) Wait() Snapshot {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()

	if r != nil {
		<-r.done
	}
	return c.Snapshot()
}

func (c *Controller) begin(ctx context.Context, form generationForm) (string, error) {
	c.beginMu.Lock()
	defer c.beginMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	req, err := form.newRequest(runCtx, c.config.Target)
	if err != nil {
		cancel()
		return "", err
	}

	// Abandon the prior request before its buffers are reused.
	c.Cancel()

	r := &run{
		id:     uuid.NewString(),
		mode:   form.mode,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.acc.Reset()
	c.run = r
	c.status = Streaming
	c.err = nil
	c.stats = stream.Stats{}
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("session started",
		"id", r.id,
		"mode", r.mode.String(),
		"target", c.config.Target,
	)

	go c.drive(runCtx, r, req)

	return r.id, nil
}

// drive runs the decode, classify, accumulate loop for r until the stream
// ends. It is the only writer of the buffers while r is current.
func (c *Controller) drive(ctx context.Context, r *run, req *http.Request) {
	defer close(r.done)
	defer r.cancel()

	ctx, span := c.tracer.Start(ctx, "session."+r.mode.String(),
		trace.WithAttributes(attribute.String("session.id", r.id)),
	)
	defer span.End()

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		c.finish(ctx, r, span, fmt.Errorf("sending generation request: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.finish(ctx, r, span, &StatusError{Code: resp.StatusCode, Body: string(body)})
		return
	}

	dec := stream.NewDecoder(sse.NewTeeReader(resp.Body, c.transcript), c.logger.With("id", r.id))
	for {
		rec, err := dec.Next()
		if err != nil {
			c.setStats(r, dec.Stats())
			if errors.Is(err, io.EOF) {
				err = nil
			}
			c.finish(ctx, r, span, err)
			return
		}

		if !c.apply(r, rec, dec.Stats()) {
			return
		}
	}
}

func (c *Controller) apply(r *run, rec stream.Record, stats stream.Stats) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ownsLocked(r) {
		return false
	}

	c.acc.Apply(rec)
	c.stats = stats
	c.metrics.frame(rec.Kind)
	c.publishLocked()
	return true
}

func (c *Controller) setStats(r *run, stats stream.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ownsLocked(r) {
		c.stats = stats
	}
}

// finish moves r to its terminal state. Cancellation of the session context
// counts as a clean stop, not a failure.
func (c *Controller) finish(ctx context.Context, r *run, span trace.Span, err error) {
	c.mu.Lock()
	if !c.ownsLocked(r) {
		c.mu.Unlock()
		return
	}

	switch {
	case err == nil || ctx.Err() != nil:
		c.status = Completed
		c.err = nil
	default:
		c.status = Failed
		c.err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("session.status", c.status.String()),
		attribute.Int("session.frames", c.stats.Frames),
		attribute.Int("session.dropped", c.stats.Dropped),
	)

	snap := c.snapshotLocked()
	reasoningBytes, contentBytes := c.acc.Len(stream.Reasoning), c.acc.Len(stream.Content)
	c.publishLocked()
	c.mu.Unlock()

	c.metrics.finished(r.mode, snap.Status, snap.Stats)

	if snap.Status == Failed {
		c.logger.Error("session failed",
			"id", r.id,
			"error", err,
			"reasoning_bytes", reasoningBytes,
			"content_bytes", contentBytes,
		)
		return
	}

	c.logger.Info("session completed",
		"id", r.id,
		"frames", snap.Stats.Frames,
		"dropped", snap.Stats.Dropped,
		"discarded_bytes", snap.Stats.Discarded,
	)
}

func (c *Controller) ownsLocked(r *run) bool {
	return c.run == r && !r.stopped
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:    c.status,
		Reasoning: c.acc.Text(stream.Reasoning),
		Content:   c.acc.Text(stream.Content),
		Err:       c.err,
		Stats:     c.stats,
	}
	if c.run != nil {
		snap.ID = c.run.id
		snap.Mode = c.run.mode
	}
	return snap
}

// publishLocked replaces any undelivered snapshot with the current one.
func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}
