package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"otp-session-auth/internal/analytics"
)

const instrumentationName = "otp-session-auth/analytics"

// LogRecorder is the subset of an OTel logger the emitter needs.
type LogRecorder interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) analytics.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(instrumentationName))
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger.
func NewEventEmitterWithLogger(logger LogRecorder) analytics.EventEmitter {
	return &logEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *analytics.Event) error { return nil }

type logEmitter struct {
	logger LogRecorder
}

// Emit converts the event to an OTel log record. The body is the event kind;
// each attribute becomes a record attribute.
func (e *logEmitter) Emit(ctx context.Context, event *analytics.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(severityFor(event.Kind))
	rec.SetSeverityText(severityFor(event.Kind).String())
	rec.SetBody(otellog.StringValue(event.Kind.String()))
	rec.AddAttributes(otellog.String("event_id", event.ID), otellog.String("event", event.Kind.String()))
	for k, v := range event.Attributes {
		rec.AddAttributes(otellog.String(k, v))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func severityFor(kind analytics.Kind) otellog.Severity {
	if kind == analytics.KindOTPValidationFailure {
		return otellog.SeverityWarn
	}
	return otellog.SeverityInfo
}
