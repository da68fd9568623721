package playback

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/yuanying/narrator/playback"

type metrics struct {
	chunks   metric.Int64Counter
	errors   metric.Int64Counter
	stale    metric.Int64Counter
	sessions metric.Int64Counter
	delay    metric.Float64Histogram
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		m    metrics
		err  error
		errs []error
	)
	m.chunks, err = meter.Int64Counter("narrator.playback.chunks",
		metric.WithDescription("Chunks narrated to completion"))
	errs = append(errs, err)
	m.errors, err = meter.Int64Counter("narrator.playback.errors",
		metric.WithDescription("Engine failures that stopped a session"))
	errs = append(errs, err)
	m.stale, err = meter.Int64Counter("narrator.playback.stale_notifications",
		metric.WithDescription("Engine notifications discarded after cancellation"))
	errs = append(errs, err)
	m.sessions, err = meter.Int64Counter("narrator.playback.sessions",
		metric.WithDescription("Narration sessions started"))
	errs = append(errs, err)
	m.delay, err = meter.Float64Histogram("narrator.playback.start_latency",
		metric.WithDescription("Time from issuing an utterance to the engine reporting its start"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *metrics) chunkDone(ctx context.Context) {
	m.chunks.Add(ctx, 1)
}

func (m *metrics) failed(ctx context.Context, kind string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *metrics) staleNotification(ctx context.Context, kind NotificationKind) {
	m.stale.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}

func (m *metrics) sessionStarted(ctx context.Context) {
	m.sessions.Add(ctx, 1)
}

func (m *metrics) startLatency(ctx context.Context, seconds float64) {
	m.delay.Record(ctx, seconds)
}
