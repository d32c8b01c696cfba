package orchestrator

import (
	"testing"
	"time"
)

func TestRegistry_PutGetDelete(t *testing.T) {
	r := NewRegistry(time.Minute)
	defer r.Close()

	state := newJobState("job-1", testPanels(1))
	r.Put(state)

	got, ok := r.Get("job-1")
	if !ok || got != state {
		t.Fatalf("Get(job-1) = %v, %t; want the registered state", got, ok)
	}
	if _, ok := r.Get("job-missing"); ok {
		t.Error("Get on unknown job reported found")
	}

	r.Delete("job-1")
	if _, ok := r.Get("job-1"); ok {
		t.Error("Get after Delete reported found")
	}
}

func TestRegistry_EvictsCompletedAfterTTL(t *testing.T) {
	r := NewRegistry(time.Minute)
	defer r.Close()

	r.Put(newJobState("job-done", testPanels(1)))
	r.Put(newJobState("job-running", testPanels(1)))
	r.Complete("job-done")

	// Running jobs survive any sweep; completed jobs only expire after TTL.
	r.evictExpired(time.Now())
	if r.Len() != 2 {
		t.Fatalf("premature eviction: Len = %d, want 2", r.Len())
	}

	r.evictExpired(time.Now().Add(2 * time.Minute))
	if _, ok := r.Get("job-done"); ok {
		t.Error("completed job survived past its TTL")
	}
	if _, ok := r.Get("job-running"); !ok {
		t.Error("running job was evicted")
	}
}

func TestRegistry_JanitorInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{40 * time.Millisecond, 10 * time.Millisecond},
		{2 * time.Minute, 30 * time.Second},
		{4 * time.Minute, time.Minute},
		{DefaultRegistryTTL, time.Minute}, // capped
	}
	for _, tt := range tests {
		if got := janitorInterval(tt.ttl); got != tt.want {
			t.Errorf("janitorInterval(%v) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}

func TestRegistry_JanitorEvictsEndToEnd(t *testing.T) {
	r := NewRegistry(40 * time.Millisecond)
	defer r.Close()

	r.Put(newJobState("job-sweep", testPanels(1)))
	r.Complete("job-sweep")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := r.Get("job-sweep"); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("completed job still registered long after its TTL")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegistry_CloseIsIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Close()
	r.Close()
}
