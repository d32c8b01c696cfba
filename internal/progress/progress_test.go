package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/fpang/panelforge/internal/generate"
)

// captureSink records events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Publish(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *captureSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// blockingSink blocks every Publish until released.
type blockingSink struct {
	release chan struct{}
}

func (b *blockingSink) Publish(Event) { <-b.release }

func TestMultiFansOut(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	m := Multi{a, b}

	m.Publish(Event{Type: EventStarted, JobID: "j", PanelNumber: 1, Kind: generate.KindImage})

	if a.len() != 1 || b.len() != 1 {
		t.Errorf("fan-out delivered (%d, %d) events, want (1, 1)", a.len(), b.len())
	}
}

func TestAsyncDeliversInOrder(t *testing.T) {
	capture := &captureSink{}
	a := NewAsync(capture, 16)

	for i := 1; i <= 5; i++ {
		a.Publish(Event{Type: EventStarted, JobID: "j", PanelNumber: i})
	}
	a.Close()

	if capture.len() != 5 {
		t.Fatalf("delivered %d events, want 5", capture.len())
	}
	for i, e := range capture.events {
		if e.PanelNumber != i+1 {
			t.Errorf("event %d has panel %d, want %d", i, e.PanelNumber, i+1)
		}
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	blocked := &blockingSink{release: make(chan struct{})}
	a := NewAsync(blocked, 2)

	// One event occupies the drain goroutine, two fill the buffer; the rest
	// must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			a.Publish(Event{Type: EventStarted, PanelNumber: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow sink")
	}
	if a.Dropped() == 0 {
		t.Error("Dropped() = 0, want > 0 with a blocked sink")
	}

	close(blocked.release)
	a.Close()
}

func TestAsyncPublishAfterCloseIsDropped(t *testing.T) {
	capture := &captureSink{}
	a := NewAsync(capture, 4)

	a.Publish(Event{Type: EventStarted, PanelNumber: 1})
	a.Close()

	// A worker leaked past its job deadline may publish its fallback after
	// the caller has closed the sink; that must be a silent drop, not a
	// panic.
	a.Publish(Event{Type: EventFallbackUsed, PanelNumber: 1})

	if capture.len() != 1 {
		t.Errorf("delivered %d events, want 1 (pre-close only)", capture.len())
	}
	if a.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", a.Dropped())
	}
}

func TestAsyncCloseWithStragglingPublishers(t *testing.T) {
	capture := &captureSink{}
	a := NewAsync(capture, 8)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				a.Publish(Event{Type: EventFallbackUsed, PanelNumber: j})
			}
		}()
	}

	close(start)
	a.Close() // races with the publishers; must never panic
	wg.Wait()
	a.Close()
}

func TestHubPublishWithoutClients(t *testing.T) {
	h := NewHub()
	defer h.Close()

	// Must not panic or block with zero observers.
	h.Publish(Event{Type: EventJobComplete, JobID: "j"})
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", h.ClientCount())
	}
}
