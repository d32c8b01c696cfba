// Package config loads pipeline configuration from environment variables,
// with an optional .env file for development. Values are parsed with
// github.com/caarlos0/env and clamped by Sanitize before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/orchestrator"
	"github.com/fpang/panelforge/internal/ratelimit"
	"github.com/fpang/panelforge/internal/retry"
)

// AppConfig is the full panelforge configuration.
type AppConfig struct {
	// Bucket is the S3 bucket panel assets are uploaded to. Empty selects the
	// in-memory store, which is only useful for dry runs and tests.
	Bucket string `env:"PANELFORGE_BUCKET"`

	// PresignExpiry is the lifetime of presigned asset URLs.
	PresignExpiry time.Duration `env:"PANELFORGE_PRESIGN_EXPIRY" envDefault:"24h"`

	// StaticMusicURL is the bundled background track used for panels without
	// a music reference. Empty selects the built-in default.
	StaticMusicURL string `env:"PANELFORGE_STATIC_MUSIC_URL"`

	// GeminiAPIKey authenticates image and speech generation. When empty it
	// is loaded from SSM Parameter Store (see SSMAPIKeyParam).
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// SSMAPIKeyParam is the SSM parameter holding the Gemini API key.
	SSMAPIKeyParam string `env:"SSM_API_KEY_PARAM" envDefault:"/panelforge/prod/gemini-api-key"`

	// ImageModel, SpeechModel, and SpeechVoice override the generator
	// defaults.
	ImageModel  string `env:"PANELFORGE_IMAGE_MODEL"`
	SpeechModel string `env:"PANELFORGE_SPEECH_MODEL"`
	SpeechVoice string `env:"PANELFORGE_SPEECH_VOICE"`

	// Lyria music generation runs against Vertex AI and needs a GCP project,
	// region, and OAuth2 access token. Left empty, panels with a music
	// reference resolve to fallbacks.
	LyriaProject     string `env:"PANELFORGE_LYRIA_PROJECT"`
	LyriaRegion      string `env:"PANELFORGE_LYRIA_REGION" envDefault:"us-central1"`
	LyriaAccessToken string `env:"PANELFORGE_LYRIA_ACCESS_TOKEN"`
	MusicModel       string `env:"PANELFORGE_MUSIC_MODEL"`

	Pipeline PipelineConfig `envPrefix:"PANELFORGE_"`
}

// PipelineConfig tunes the orchestration timing knobs.
type PipelineConfig struct {
	Stagger         time.Duration `env:"STAGGER" envDefault:"500ms"`
	AssetTimeout    time.Duration `env:"ASSET_TIMEOUT" envDefault:"90s"`
	PerPanelTimeout time.Duration `env:"PANEL_TIMEOUT" envDefault:"2m"`
	DeadlineGrace   time.Duration `env:"DEADLINE_GRACE" envDefault:"5s"`

	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryInitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	// Minimum spacing between call starts per generator kind.
	ImageInterval  time.Duration `env:"IMAGE_INTERVAL" envDefault:"500ms"`
	SpeechInterval time.Duration `env:"SPEECH_INTERVAL" envDefault:"200ms"`
	MusicInterval  time.Duration `env:"MUSIC_INTERVAL" envDefault:"500ms"`
}

// Load reads configuration from the environment, honoring a .env file when
// one exists in the working directory.
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *AppConfig) Sanitize() {
	if c.PresignExpiry <= 0 {
		c.PresignExpiry = 24 * time.Hour
	}
	c.Pipeline.Sanitize()
}

// Sanitize clamps timing knobs to sane values. Zero or negative durations
// would make the pipeline either spin or hang.
func (p *PipelineConfig) Sanitize() {
	if p.Stagger < 0 {
		p.Stagger = 0
	}
	if p.AssetTimeout <= 0 {
		p.AssetTimeout = 90 * time.Second
	}
	if p.PerPanelTimeout <= 0 {
		p.PerPanelTimeout = 2 * time.Minute
	}
	if p.DeadlineGrace <= 0 {
		p.DeadlineGrace = 5 * time.Second
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.RetryInitialDelay <= 0 {
		p.RetryInitialDelay = time.Second
	}
	if p.RetryMaxDelay < p.RetryInitialDelay {
		p.RetryMaxDelay = p.RetryInitialDelay
	}
}

// Orchestrator maps the pipeline knobs onto an orchestrator Config.
func (p PipelineConfig) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		Stagger:         p.Stagger,
		AssetTimeout:    p.AssetTimeout,
		PerPanelTimeout: p.PerPanelTimeout,
		DeadlineGrace:   p.DeadlineGrace,
		Retry: retry.Policy{
			MaxRetries:   p.MaxRetries,
			InitialDelay: p.RetryInitialDelay,
			MaxDelay:     p.RetryMaxDelay,
			Jitter:       true,
		},
	}
}

// Limiter builds the per-kind rate limiter from the configured intervals.
func (p PipelineConfig) Limiter() *ratelimit.Limiter {
	return ratelimit.New(map[generate.Kind]time.Duration{
		generate.KindImage:  p.ImageInterval,
		generate.KindSpeech: p.SpeechInterval,
		generate.KindMusic:  p.MusicInterval,
	})
}

// LyriaConfigured reports whether music generation has the Vertex AI
// settings it needs.
func (c AppConfig) LyriaConfigured() bool {
	return c.LyriaProject != "" && c.LyriaRegion != "" && c.LyriaAccessToken != ""
}
