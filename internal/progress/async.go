package progress

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Async decouples publishers from a potentially slow downstream sink through
// a buffered channel drained by a single goroutine. When the buffer is full
// the event is dropped rather than blocking a panel worker: observability
// never stalls generation.
//
// Publish stays safe after Close. A job that hits its deadline returns while
// stragglers are still persisting their fallbacks, and those workers may
// publish after the caller has closed the sink; late events are dropped.
type Async struct {
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewAsync wraps next in an asynchronous, non-blocking sink with the given
// buffer size. Close must be called to flush and stop the drain goroutine.
func NewAsync(next Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		for e := range a.ch {
			next.Publish(e)
		}
	}()
	return a
}

// Publish enqueues the event, dropping it if the buffer is full or the sink
// is already closed. The send happens under the mutex so Close can never
// close the channel out from under an in-flight Publish.
func (a *Async) Publish(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.dropped++
		log.Debug().
			Str("event", string(e.Type)).
			Msg("Progress sink closed, dropping late event")
		return
	}
	select {
	case a.ch <- e:
	default:
		a.dropped++
		log.Warn().
			Str("event", string(e.Type)).
			Int("dropped_total", a.dropped).
			Msg("Progress buffer full, dropping event")
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (a *Async) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close flushes buffered events to the downstream sink and stops the drain
// goroutine. Publishers may still call Publish afterwards; their events are
// dropped.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()
		<-a.done
	})
}
