package analytics

import "context"

// EventEmitter delivers events to one destination. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Sink is what the OTP manager and the login flow record into.
type Sink interface {
	Record(ctx context.Context, kind Kind, attrs map[string]string)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event *Event) error

// Emit calls f(ctx, event).
func (f EmitterFunc) Emit(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(context.Context, Kind, map[string]string) {}
