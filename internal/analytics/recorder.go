package analytics

import (
	"context"
	"sync"
	"time"
)

// Recorder fans events out to its emitters asynchronously.
// A nil *Recorder is valid and drops every event.
type Recorder struct {
	emitters []EventEmitter
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewRecorder returns a Recorder that emits to every non-nil emitter.
func NewRecorder(emitters ...EventEmitter) *Recorder {
	r := &Recorder{now: time.Now}
	for _, e := range emitters {
		if e != nil {
			r.emitters = append(r.emitters, e)
		}
	}
	return r
}

// Record builds one event and hands it to each emitter in its own goroutine.
func (r *Recorder) Record(ctx context.Context, kind Kind, attrs map[string]string) {
	if r == nil || len(r.emitters) == 0 {
		return
	}
	event := NewEvent(kind, attrs, r.now())
	for _, e := range r.emitters {
		emitAsync(&r.wg, e, event)
	}
}

// Wait blocks until in-flight emits finish or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
