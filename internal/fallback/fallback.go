// Package fallback synthesizes deterministic placeholder assets when real
// generation is exhausted. Producing a fallback must never block the
// pipeline: any internal failure degrades to an empty URL, never an error.
package fallback

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/storage"
)

// DefaultMusicURL points at the bundled background track served by the
// frontend when no generated music exists.
const DefaultMusicURL = "/assets/audio/background-music.mp3"

// Producer builds placeholder assets for panels whose real generation failed.
type Producer struct {
	store    storage.Store
	musicURL string
}

// NewProducer creates a fallback producer that persists placeholder image and
// speech assets via store. An empty musicURL selects DefaultMusicURL.
func NewProducer(store storage.Store, musicURL string) *Producer {
	if musicURL == "" {
		musicURL = DefaultMusicURL
	}
	return &Producer{store: store, musicURL: musicURL}
}

// Produce returns a placeholder asset URL for the given kind and panel.
// cause is the terminal error that exhausted real generation; it is logged,
// never propagated. On any internal failure Produce returns "" so the
// pipeline keeps moving: liveness over completeness.
func (p *Producer) Produce(ctx context.Context, kind generate.Kind, jobID string, panelNumber int, cause error) string {
	log.Warn().
		Str("job", jobID).
		Int("panel", panelNumber).
		Str("kind", kind.String()).
		Err(cause).
		Msg("Producing fallback asset")

	switch kind {
	case generate.KindImage:
		data, err := PlaceholderImage(panelNumber)
		if err != nil {
			log.Error().Err(err).Int("panel", panelNumber).Msg("Failed to render fallback image")
			return ""
		}
		return p.storeQuiet(ctx, data,
			fmt.Sprintf("stories/%s/panel_%02d_fallback.png", jobID, panelNumber), "image/png")

	case generate.KindSpeech:
		return p.storeQuiet(ctx, SilenceWAV(),
			fmt.Sprintf("stories/%s/panel_%02d_fallback.wav", jobID, panelNumber), "audio/wav")

	case generate.KindMusic:
		// Music falls back to the bundled static track; no storage round-trip.
		return p.musicURL

	default:
		log.Error().Str("kind", kind.String()).Msg("Unknown asset kind for fallback")
		return ""
	}
}

// storeQuiet persists placeholder bytes, degrading to "" on failure.
func (p *Producer) storeQuiet(ctx context.Context, data []byte, path, contentType string) string {
	url, err := p.store.Store(ctx, data, path, contentType)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to store fallback asset")
		return ""
	}
	return url
}
