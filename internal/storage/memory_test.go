package storage

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	m := NewMemoryStore()

	url, err := m.Store(context.Background(), []byte("png-bytes"), "stories/job1/panel_01.png", "image/png")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if url != "mem://stories/job1/panel_01.png" {
		t.Errorf("url = %q, want mem:// URL", url)
	}

	data, ok := m.Get("stories/job1/panel_01.png")
	if !ok || string(data) != "png-bytes" {
		t.Errorf("Get = (%q, %v), want stored bytes", data, ok)
	}
}

func TestMemoryStoreIdempotentOverwrite(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	if _, err := m.Store(ctx, []byte("first"), "p", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := m.Store(ctx, []byte("second"), "p", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	data, _ := m.Get("p")
	if string(data) != "second" {
		t.Errorf("Get = %q, want %q", data, "second")
	}
}

func TestMemoryStoreConcurrentWrites(t *testing.T) {
	m := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := string(rune('a' + n%8))
			if _, err := m.Store(context.Background(), []byte{byte(n)}, path, ""); err != nil {
				t.Errorf("Store: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if m.Len() != 8 {
		t.Errorf("Len() = %d, want 8", m.Len())
	}
}
