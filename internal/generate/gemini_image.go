package generate

// gemini_image.go adapts the Gemini image model (google.golang.org/genai SDK)
// to the Generator contract. Panel prompts go in as text, the first inline
// image part of the response comes back as raw bytes.

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultImageModel is the Gemini model used for panel image generation.
// Can be overridden via configuration.
const DefaultImageModel = "gemini-3-pro-image-preview"

// GeminiImageGenerator generates panel images via the Gemini API.
type GeminiImageGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiImageGenerator creates an image generator backed by the given
// Gemini client. An empty model selects DefaultImageModel.
func NewGeminiImageGenerator(client *genai.Client, model string) *GeminiImageGenerator {
	if model == "" {
		model = DefaultImageModel
	}
	return &GeminiImageGenerator{client: client, model: model}
}

// Generate renders one panel image from the descriptor's prompt.
func (g *GeminiImageGenerator) Generate(ctx context.Context, d Descriptor) ([]byte, string, error) {
	log.Debug().
		Int("panel", d.PanelNumber).
		Str("model", g.model).
		Int("prompt_length", len(d.Prompt)).
		Msg("Generating panel image")

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(d.Prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		})
	if err != nil {
		return nil, "", fmt.Errorf("generate image for panel %d: %w", d.PanelNumber, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", NewError(ClassFatal, fmt.Errorf("empty response for panel %d image", d.PanelNumber))
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Debug().
				Int("panel", d.PanelNumber).
				Int("bytes", len(part.InlineData.Data)).
				Dur("duration", time.Since(start)).
				Msg("Panel image generated")
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}

	return nil, "", NewError(ClassFatal, fmt.Errorf("no image parts in response for panel %d", d.PanelNumber))
}
