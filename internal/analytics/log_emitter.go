package analytics

import (
	"context"

	"github.com/rs/zerolog"
)

// LogEmitter writes each event as one structured log line.
type LogEmitter struct {
	logger zerolog.Logger
}

// NewLogEmitter returns an emitter that logs events at info level to logger.
func NewLogEmitter(logger zerolog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs "[Analytics] KIND" with the event attributes as fields.
func (e *LogEmitter) Emit(ctx context.Context, event *Event) error {
	if event == nil {
		return nil
	}
	ev := e.logger.Info().Str("event_id", event.ID).Time("at", event.CreatedAt)
	for k, v := range event.Attributes {
		ev = ev.Str(k, v)
	}
	ev.Msg("[Analytics] " + event.Kind.String())
	return nil
}
