package generate

// gemini_speech.go adapts the Gemini TTS model to the Generator contract.
// Panel narration text goes in, PCM audio bytes come back from the first
// inline audio part of the response.

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultSpeechModel is the Gemini TTS model used for panel narration.
const DefaultSpeechModel = "gemini-2.5-flash-preview-tts"

// DefaultVoice is the prebuilt voice used when none is configured.
const DefaultVoice = "Kore"

// GeminiSpeechGenerator synthesizes panel narration via the Gemini TTS API.
type GeminiSpeechGenerator struct {
	client *genai.Client
	model  string
	voice  string
}

// NewGeminiSpeechGenerator creates a speech generator backed by the given
// Gemini client. Empty model/voice select the defaults.
func NewGeminiSpeechGenerator(client *genai.Client, model, voice string) *GeminiSpeechGenerator {
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &GeminiSpeechGenerator{client: client, model: model, voice: voice}
}

// Generate synthesizes narration audio from the descriptor's text.
func (g *GeminiSpeechGenerator) Generate(ctx context.Context, d Descriptor) ([]byte, string, error) {
	log.Debug().
		Int("panel", d.PanelNumber).
		Str("model", g.model).
		Str("voice", g.voice).
		Int("text_length", len(d.Prompt)).
		Msg("Generating panel narration")

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(d.Prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
						VoiceName: g.voice,
					},
				},
			},
		})
	if err != nil {
		return nil, "", fmt.Errorf("generate narration for panel %d: %w", d.PanelNumber, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", NewError(ClassFatal, fmt.Errorf("empty response for panel %d narration", d.PanelNumber))
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Debug().
				Int("panel", d.PanelNumber).
				Int("bytes", len(part.InlineData.Data)).
				Dur("duration", time.Since(start)).
				Msg("Panel narration generated")
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}

	return nil, "", NewError(ClassFatal, fmt.Errorf("no audio parts in response for panel %d", d.PanelNumber))
}
