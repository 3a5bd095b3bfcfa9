package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// emitAsync runs Emit in a goroutine tracked by wg, which may be nil.
// Nil emitters and events are dropped. The emit gets its own timeout so a
// cancelled caller context does not abort it.
func emitAsync(wg *sync.WaitGroup, emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Warn().Err(err).Str("event", event.Kind.String()).Msg("analytics: async emit failed")
		}
	}()
}
