package session

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/papercomputeco/rehearse/pkg/stream"
)

type metrics struct {
	sessions metric.Int64Counter
	frames   metric.Int64Counter
	dropped  metric.Int64Counter
}

func newMetrics(meter metric.Meter, logger *slog.Logger) metrics {
	var (
		m   metrics
		err error
		nop = metricnoop.Meter{}
	)

	m.sessions, err = meter.Int64Counter("rehearse.sessions",
		metric.WithDescription("Generation sessions by mode and final status"),
	)
	if err != nil {
		logger.Warn("creating sessions counter", "error", err)
		m.sessions, _ = nop.Int64Counter("rehearse.sessions")
	}

	m.frames, err = meter.Int64Counter("rehearse.frames",
		metric.WithDescription("Decoded frames by channel"),
	)
	if err != nil {
		logger.Warn("creating frames counter", "error", err)
		m.frames, _ = nop.Int64Counter("rehearse.frames")
	}

	m.dropped, err = meter.Int64Counter("rehearse.frames.dropped",
		metric.WithDescription("Frames skipped for a malformed payload"),
	)
	if err != nil {
		logger.Warn("creating dropped frames counter", "error", err)
		m.dropped, _ = nop.Int64Counter("rehearse.frames.dropped")
	}

	return m
}

func (m metrics) frame(kind stream.Kind) {
	m.frames.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("channel", kind.String())),
	)
}

func (m metrics) finished(mode Mode, status Status, stats stream.Stats) {
	ctx := context.Background()
	m.sessions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode.String()),
		attribute.String("status", status.String()),
	))
	if stats.Dropped > 0 {
		m.dropped.Add(ctx, int64(stats.Dropped))
	}
}
