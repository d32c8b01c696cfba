// Package orchestrator drives a job's panels through rate-limited, retried,
// fallback-protected asset generation and assembles the complete result set.
// A job always converges: every panel resolves every asset kind to either a
// real URL or a recorded fallback within bounded time.
package orchestrator

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/retry"
)

// PanelDescriptor is the immutable input for one unit of work. Created by the
// upstream story planner; never mutated here.
type PanelDescriptor struct {
	PanelNumber int    `json:"panelNumber"`
	ImagePrompt string `json:"imagePrompt"`
	SpeechText  string `json:"speechText"`
	MusicRef    string `json:"musicRef,omitempty"`
}

// promptFor returns the generator input for the given asset kind.
func (d PanelDescriptor) promptFor(kind generate.Kind) string {
	switch kind {
	case generate.KindImage:
		return d.ImagePrompt
	case generate.KindSpeech:
		return d.SpeechText
	case generate.KindMusic:
		return d.MusicRef
	}
	return ""
}

// AssetResult is the outcome of generating one asset kind for one panel.
// Immutable once produced. An empty URL means "no asset".
type AssetResult struct {
	Kind        generate.Kind  `json:"kind"`
	PanelNumber int            `json:"panelNumber"`
	URL         string         `json:"url"`
	IsFallback  bool           `json:"isFallback"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"lastError,omitempty"`
	ErrorClass  generate.Class `json:"errorClass,omitempty"`
}

// PanelResult aggregates the asset results for one panel with its descriptor.
// A finished job holds exactly one AssetResult per kind, never absent.
type PanelResult struct {
	Descriptor PanelDescriptor                `json:"descriptor"`
	Assets     map[generate.Kind]*AssetResult `json:"assets"`
}

// complete reports whether every asset kind has resolved.
func (p *PanelResult) complete() bool {
	for _, kind := range generate.AllKinds() {
		if p.Assets[kind] == nil {
			return false
		}
	}
	return true
}

// Status tracks the job lifecycle.
type Status string

const (
	StatusRunning   Status = "running"
	StatusTimedOut  Status = "timed_out"
	StatusCompleted Status = "completed"
)

// JobState accumulates panel results for one job. Created at job start,
// populated incrementally by panel workers, frozen when RunJob returns.
// Serialize a live state through MarshalJSON, which snapshots under the lock.
type JobState struct {
	JobID       string        `json:"jobId"`
	Status      Status        `json:"status"`
	TimedOut    bool          `json:"timedOut"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt,omitzero"`
	Panels      []PanelResult `json:"panels"` // indexed by panelNumber-1

	mu sync.Mutex
}

// newJobState creates a Running JobState with one empty PanelResult per
// descriptor, indexed by panel number.
func newJobState(jobID string, panels []PanelDescriptor) *JobState {
	s := &JobState{
		JobID:     jobID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Panels:    make([]PanelResult, len(panels)),
	}
	for _, d := range panels {
		s.Panels[d.PanelNumber-1] = PanelResult{
			Descriptor: d,
			Assets:     make(map[generate.Kind]*AssetResult, len(generate.AllKinds())),
		}
	}
	return s
}

// setAsset records one resolved asset. First write wins: a late worker result
// never overwrites a forced deadline fallback, and vice versa.
func (s *JobState) setAsset(res *AssetResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assets := s.Panels[res.PanelNumber-1].Assets
	if assets[res.Kind] == nil {
		assets[res.Kind] = res
	}
}

// jobStateView mirrors JobState's exported fields for serialization.
type jobStateView struct {
	JobID       string        `json:"jobId"`
	Status      Status        `json:"status"`
	TimedOut    bool          `json:"timedOut"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt,omitzero"`
	Panels      []PanelResult `json:"panels"`
}

// MarshalJSON snapshots the state under its lock, so a running job can be
// served to observers while panel workers are still recording results.
// AssetResults are immutable once recorded, so copying the maps suffices.
func (s *JobState) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := jobStateView{
		JobID:       s.JobID,
		Status:      s.Status,
		TimedOut:    s.TimedOut,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Panels:      make([]PanelResult, len(s.Panels)),
	}
	for i, p := range s.Panels {
		assets := make(map[generate.Kind]*AssetResult, len(p.Assets))
		for kind, a := range p.Assets {
			assets[kind] = a
		}
		view.Panels[i] = PanelResult{Descriptor: p.Descriptor, Assets: assets}
	}
	return json.Marshal(view)
}

// Panel returns the result for the given panel number (1-based).
func (s *JobState) Panel(panelNumber int) PanelResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Panels[panelNumber-1]
}

// FallbackCount returns how many assets resolved as fallbacks.
func (s *JobState) FallbackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.Panels {
		for _, a := range p.Assets {
			if a != nil && a.IsFallback {
				n++
			}
		}
	}
	return n
}

// Config tunes the pipeline. The defaults were observed against the Gemini
// backends' 500-error behavior and should be re-validated when pointing the
// pipeline at a different vendor.
type Config struct {
	// Stagger spaces panel worker starts: worker i waits i*Stagger before
	// touching the rate limiter, smoothing the initial burst.
	Stagger time.Duration

	// AssetTimeout bounds one asset's acquire+generate+store sequence.
	AssetTimeout time.Duration

	// PerPanelTimeout scales the job-level deadline: deadline = N panels *
	// PerPanelTimeout.
	PerPanelTimeout time.Duration

	// DeadlineGrace is how long RunJob waits after the job deadline for
	// workers to finish recording their fallbacks before it force-fills.
	DeadlineGrace time.Duration

	// Retry bounds per-asset generation retries.
	Retry retry.Policy
}

// DefaultConfig returns the tuned production defaults.
func DefaultConfig() Config {
	return Config{
		Stagger:         500 * time.Millisecond,
		AssetTimeout:    90 * time.Second,
		PerPanelTimeout: 2 * time.Minute,
		DeadlineGrace:   5 * time.Second,
		Retry:           retry.DefaultPolicy(),
	}
}

// sanitize fills zero values with defaults.
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.AssetTimeout <= 0 {
		c.AssetTimeout = def.AssetTimeout
	}
	if c.PerPanelTimeout <= 0 {
		c.PerPanelTimeout = def.PerPanelTimeout
	}
	if c.DeadlineGrace <= 0 {
		c.DeadlineGrace = def.DeadlineGrace
	}
	if c.Stagger < 0 {
		c.Stagger = 0
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = 0
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = def.Retry.InitialDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = def.Retry.MaxDelay
	}
	return c
}
