package research

import (
	"context"
	"fmt"
	"research/pkg/events"
	"research/pkg/metrics"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// runMetrics instruments research runs: how many events go out, how long runs
// take and how they end.
type runMetrics struct {
	eventsEmitted  metric.Int64Counter
	streamDuration metric.Float64Histogram
}

func newRunMetrics(meter metric.Meter) (*runMetrics, error) {
	eventsEmitted, err := meter.Int64Counter("research_events_emitted_total",
		metric.WithDescription("Number of progress events emitted to clients."))
	if err != nil {
		return nil, fmt.Errorf("could not create events counter: %w", err)
	}

	streamDuration, err := meter.Float64Histogram("research_run_duration_seconds",
		metric.WithDescription("Wall-clock duration of research runs."),
		metric.WithExplicitBucketBoundaries(metrics.StreamBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create duration histogram: %w", err)
	}

	return &runMetrics{eventsEmitted: eventsEmitted, streamDuration: streamDuration}, nil
}

// countEvents wraps emit so every outgoing event is counted by type.
func (m *runMetrics) countEvents(emit events.Emitter) events.Emitter {
	if m == nil {
		return emit
	}

	return func(ctx context.Context, event events.Event) error {
		m.eventsEmitted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", string(event.Type)),
		))

		return emit(ctx, event)
	}
}

func (m *runMetrics) observeRun(ctx context.Context, mode string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.streamDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}
