package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"otp-session-auth/internal/analytics"
)

const meterName = "otp-session-auth"

// Metrics holds the OpenTelemetry instruments for the login flow.
type Metrics struct {
	// EventsTotal counts analytics events by kind and failure reason.
	EventsTotal metric.Int64Counter
	// SessionWatchers tracks open WatchSession streams.
	SessionWatchers metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on provider. A nil provider yields no-op instruments.
func NewMetrics(provider metric.MeterProvider) *Metrics {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)
	m := &Metrics{}
	m.EventsTotal, _ = meter.Int64Counter(
		"otpauth.analytics.events.total",
		metric.WithDescription("Total number of analytics events recorded"),
		metric.WithUnit("{event}"),
	)
	m.SessionWatchers, _ = meter.Int64UpDownCounter(
		"otpauth.session.watchers",
		metric.WithDescription("Number of open session timer streams"),
		metric.WithUnit("{stream}"),
	)
	return m
}

// Emit increments EventsTotal, so Metrics can be registered as an analytics emitter.
func (m *Metrics) Emit(ctx context.Context, event *analytics.Event) error {
	if m == nil || event == nil {
		return nil
	}
	attrs := []attribute.KeyValue{attribute.String("event", event.Kind.String())}
	if reason := event.Attributes[analytics.AttrReason]; reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.EventsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}

// WatchStarted records an opened session stream and returns the matching close func.
func (m *Metrics) WatchStarted(ctx context.Context) (done func()) {
	if m == nil {
		return func() {}
	}
	m.SessionWatchers.Add(ctx, 1)
	return func() { m.SessionWatchers.Add(context.Background(), -1) }
}
