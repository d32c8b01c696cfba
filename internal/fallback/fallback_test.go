package fallback

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/storage"
)

func TestPlaceholderImageDeterministic(t *testing.T) {
	a, err := PlaceholderImage(3)
	if err != nil {
		t.Fatalf("PlaceholderImage: %v", err)
	}
	b, err := PlaceholderImage(3)
	if err != nil {
		t.Fatalf("PlaceholderImage: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("PlaceholderImage(3) produced different bytes across calls")
	}

	img, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("placeholder is not valid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != placeholderWidth || bounds.Dy() != placeholderHeight {
		t.Errorf("placeholder dimensions = %dx%d, want %dx%d",
			bounds.Dx(), bounds.Dy(), placeholderWidth, placeholderHeight)
	}
}

func TestSilenceWAVWellFormed(t *testing.T) {
	wav := SilenceWAV()

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("silence clip missing RIFF/WAVE header")
	}
	wantLen := 44 + silenceSampleRate*silenceSeconds*2
	if len(wav) != wantLen {
		t.Errorf("len(wav) = %d, want %d", len(wav), wantLen)
	}
	if !bytes.Equal(wav, SilenceWAV()) {
		t.Error("SilenceWAV produced different bytes across calls")
	}
}

func TestProduceImageStoresPlaceholder(t *testing.T) {
	mem := storage.NewMemoryStore()
	p := NewProducer(mem, "")

	url := p.Produce(context.Background(), generate.KindImage, "job1", 2, errors.New("quota exceeded"))
	if url != "mem://stories/job1/panel_02_fallback.png" {
		t.Errorf("url = %q, want fallback PNG path", url)
	}
	if _, ok := mem.Get("stories/job1/panel_02_fallback.png"); !ok {
		t.Error("placeholder image not stored")
	}
}

func TestProduceSpeechStoresSilence(t *testing.T) {
	mem := storage.NewMemoryStore()
	p := NewProducer(mem, "")

	url := p.Produce(context.Background(), generate.KindSpeech, "job1", 5, errors.New("timeout"))
	if !strings.HasSuffix(url, "panel_05_fallback.wav") {
		t.Errorf("url = %q, want fallback WAV path", url)
	}
	data, ok := mem.Get("stories/job1/panel_05_fallback.wav")
	if !ok || len(data) == 0 {
		t.Fatal("silence clip not stored")
	}
}

func TestProduceMusicReturnsStaticURL(t *testing.T) {
	mem := storage.NewMemoryStore()
	p := NewProducer(mem, "https://cdn.example.com/calm.mp3")

	url := p.Produce(context.Background(), generate.KindMusic, "job1", 1, errors.New("unavailable"))
	if url != "https://cdn.example.com/calm.mp3" {
		t.Errorf("url = %q, want configured static music URL", url)
	}
	if mem.Len() != 0 {
		t.Errorf("music fallback stored %d objects, want 0", mem.Len())
	}
}

// failingStore always errors, to prove Produce degrades to "" instead of failing.
type failingStore struct{}

func (failingStore) Store(context.Context, []byte, string, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestProduceNeverPropagatesStorageFailure(t *testing.T) {
	p := NewProducer(failingStore{}, "")

	if url := p.Produce(context.Background(), generate.KindImage, "job1", 1, errors.New("x")); url != "" {
		t.Errorf("url = %q, want empty string on storage failure", url)
	}
	if url := p.Produce(context.Background(), generate.KindSpeech, "job1", 1, errors.New("x")); url != "" {
		t.Errorf("url = %q, want empty string on storage failure", url)
	}
}
