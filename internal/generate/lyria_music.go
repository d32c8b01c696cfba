package generate

// lyria_music.go provides a REST API client for Lyria music generation via the
// Vertex AI predict endpoint. Uses direct HTTP calls because the genai SDK does
// not expose the Lyria publisher models.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMusicModel is the Vertex AI Lyria model used for background music.
const DefaultMusicModel = "lyria-002"

// LyriaMusicGenerator calls the Lyria model via the Vertex AI REST API.
type LyriaMusicGenerator struct {
	projectID   string
	region      string
	accessToken string // GCP OAuth2 access token
	model       string
	httpClient  *http.Client
}

// NewLyriaMusicGenerator creates a music generator for Vertex AI Lyria.
// accessToken is a GCP OAuth2 access token (not the Gemini API key).
func NewLyriaMusicGenerator(projectID, region, accessToken, model string) *LyriaMusicGenerator {
	if model == "" {
		model = DefaultMusicModel
	}
	return &LyriaMusicGenerator{
		projectID:   projectID,
		region:      region,
		accessToken: accessToken,
		model:       model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Music generation can take 30-60s
		},
	}
}

// IsConfigured returns true if the generator has the required Vertex AI configuration.
func (g *LyriaMusicGenerator) IsConfigured() bool {
	return g.projectID != "" && g.region != "" && g.accessToken != ""
}

// --- Vertex AI Lyria request/response types ---

type lyriaRequest struct {
	Instances  []lyriaInstance `json:"instances"`
	Parameters lyriaParameters `json:"parameters"`
}

type lyriaInstance struct {
	Prompt string `json:"prompt"`
}

type lyriaParameters struct {
	SampleCount int `json:"sampleCount"`
}

type lyriaResponse struct {
	Predictions []lyriaPrediction `json:"predictions"`
	Error       *lyriaError       `json:"error,omitempty"`
}

type lyriaPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	AudioContent       string `json:"audioContent"`
	MimeType           string `json:"mimeType"`
}

type lyriaError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Generate produces background music from the descriptor's music reference.
func (g *LyriaMusicGenerator) Generate(ctx context.Context, d Descriptor) ([]byte, string, error) {
	log.Debug().
		Int("panel", d.PanelNumber).
		Str("model", g.model).
		Msg("Generating panel music")

	start := time.Now()

	req := lyriaRequest{
		Instances:  []lyriaInstance{{Prompt: d.Prompt}},
		Parameters: lyriaParameters{SampleCount: 1},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		g.region, g.projectID, g.region, g.model,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Lyria HTTP call completed")

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(respBody), 500)).
			Msg("Lyria API returned error")
		return nil, "", StatusError(resp.StatusCode,
			fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var lyriaResp lyriaResponse
	if err := json.Unmarshal(respBody, &lyriaResp); err != nil {
		return nil, "", NewError(ClassFatal, fmt.Errorf("failed to parse response: %w", err))
	}

	if lyriaResp.Error != nil {
		return nil, "", StatusError(lyriaResp.Error.Code,
			fmt.Errorf("API error: %s (code: %d)", lyriaResp.Error.Message, lyriaResp.Error.Code))
	}

	if len(lyriaResp.Predictions) == 0 {
		return nil, "", NewError(ClassFatal, fmt.Errorf("no predictions returned for panel %d music", d.PanelNumber))
	}

	pred := lyriaResp.Predictions[0]
	encoded := pred.BytesBase64Encoded
	if encoded == "" {
		encoded = pred.AudioContent
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", NewError(ClassFatal, fmt.Errorf("failed to decode response audio: %w", err))
	}

	mimeType := pred.MimeType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	log.Debug().
		Int("panel", d.PanelNumber).
		Int("bytes", len(decoded)).
		Dur("duration", time.Since(start)).
		Msg("Panel music generated")

	return decoded, mimeType, nil
}

// truncate shortens s to at most n bytes for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
