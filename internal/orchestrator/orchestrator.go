package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/panelforge/internal/fallback"
	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/metrics"
	"github.com/fpang/panelforge/internal/progress"
	"github.com/fpang/panelforge/internal/storage"
)

// RateLimiter spaces call starts per generator kind.
type RateLimiter interface {
	Acquire(ctx context.Context, kind generate.Kind) error
}

// FallbackProducer synthesizes a placeholder asset when real generation is
// exhausted. Must never fail; degraded output is an empty URL.
type FallbackProducer interface {
	Produce(ctx context.Context, kind generate.Kind, jobID string, panelNumber int, cause error) string
}

// Deps wires the orchestrator's collaborators. Store and Sink implementations
// must be safe for concurrent invocation.
type Deps struct {
	// Generators maps each asset kind to its vendor adapter. A missing kind
	// resolves every panel's asset of that kind to a fallback.
	Generators map[generate.Kind]generate.Generator

	// Limiter spaces generator call starts. Nil disables rate limiting.
	Limiter RateLimiter

	// Store persists generated asset bytes.
	Store storage.Store

	// Fallback produces placeholder assets. Nil selects a producer backed by
	// Store with the default static music URL.
	Fallback FallbackProducer

	// Sink observes lifecycle events. Nil discards them.
	Sink progress.Sink

	// Registry indexes the job state for external lookup from the moment the
	// job starts, not just after it finishes. Nil skips registration.
	Registry *Registry

	// StaticMusicURL is returned for panels without a music reference.
	// Empty selects fallback.DefaultMusicURL.
	StaticMusicURL string
}

// Orchestrator fans panel workers out under a bounded concurrency policy and
// guarantees that every panel resolves.
type Orchestrator struct {
	cfg            Config
	generators     map[generate.Kind]generate.Generator
	limiter        RateLimiter
	store          storage.Store
	fallback       FallbackProducer
	sink           progress.Sink
	registry       *Registry
	staticMusicURL string
}

// noLimiter grants every acquisition immediately.
type noLimiter struct{}

func (noLimiter) Acquire(ctx context.Context, _ generate.Kind) error { return ctx.Err() }

// New creates an Orchestrator. Zero config values are replaced with the
// tuned defaults.
func New(cfg Config, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:            cfg.sanitize(),
		generators:     deps.Generators,
		limiter:        deps.Limiter,
		store:          deps.Store,
		fallback:       deps.Fallback,
		sink:           deps.Sink,
		registry:       deps.Registry,
		staticMusicURL: deps.StaticMusicURL,
	}
	if o.limiter == nil {
		o.limiter = noLimiter{}
	}
	if o.store == nil {
		o.store = storage.NewMemoryStore()
	}
	if o.staticMusicURL == "" {
		o.staticMusicURL = fallback.DefaultMusicURL
	}
	if o.fallback == nil {
		o.fallback = fallback.NewProducer(o.store, o.staticMusicURL)
	}
	if o.sink == nil {
		o.sink = progress.Discard{}
	}
	return o
}

// RunJob resolves every panel's assets and returns the frozen JobState. The
// only error it can return is synchronous input validation failure; every
// generation problem surfaces as data inside the JobState, never as an error.
//
// The job runs under a deadline of len(panels)*PerPanelTimeout. Panels still
// unresolved when it fires are completed with DeadlineExceeded fallbacks, so
// the result set is always well formed.
func (o *Orchestrator) RunJob(ctx context.Context, jobID string, panels []PanelDescriptor) (*JobState, error) {
	if err := ValidatePanels(panels); err != nil {
		return nil, fmt.Errorf("invalid panel set: %w", err)
	}

	deadline := time.Duration(len(panels)) * o.cfg.PerPanelTimeout
	log.Info().
		Str("job", jobID).
		Int("panels", len(panels)).
		Dur("deadline", deadline).
		Msg("Job started")
	start := time.Now()

	state := newJobState(jobID, panels)

	// Register up front so observers can look the job up while it runs.
	// JobState serializes under its own lock, so concurrent reads are safe.
	if o.registry != nil {
		o.registry.Put(state)
		defer o.registry.Complete(jobID)
	}

	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	g := new(errgroup.Group)
	for i, desc := range panels {
		wait := time.Duration(i) * o.cfg.Stagger
		g.Go(func() error {
			// Staggered start smooths the initial burst against the rate
			// limiter instead of relying on the limiter alone.
			if wait > 0 {
				select {
				case <-jobCtx.Done():
					return nil
				case <-time.After(wait):
				}
			}
			o.runPanel(jobCtx, jobID, desc, state)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-jobCtx.Done():
		// Give in-flight workers a moment to record their own fallbacks,
		// then force-fill whatever is still missing.
		state.mu.Lock()
		state.Status = StatusTimedOut
		state.TimedOut = true
		state.mu.Unlock()
		log.Warn().Str("job", jobID).Dur("deadline", deadline).Msg("Job deadline expired, forcing fallbacks")
		select {
		case <-done:
		case <-time.After(o.cfg.DeadlineGrace):
		}
	}

	o.fillMissing(state)

	state.mu.Lock()
	state.Status = StatusCompleted
	state.CompletedAt = time.Now()
	fallbacks := 0
	for _, p := range state.Panels {
		for _, a := range p.Assets {
			if a.IsFallback {
				fallbacks++
			}
		}
	}
	state.mu.Unlock()

	o.publish(progress.Event{Type: progress.EventJobComplete, JobID: jobID, At: time.Now()})

	rec := metrics.New("Panelforge/Jobs")
	rec.Dimension("TimedOut", fmt.Sprintf("%t", state.TimedOut))
	rec.Count("PanelsResolved", len(panels))
	rec.Count("FallbacksUsed", fallbacks)
	rec.DurationMs("JobDuration", time.Since(start))
	rec.Property("jobId", jobID)
	rec.Flush()

	log.Info().
		Str("job", jobID).
		Int("panels", len(panels)).
		Int("fallbacks", fallbacks).
		Bool("timed_out", state.TimedOut).
		Dur("duration", time.Since(start)).
		Msg("Job completed")

	return state, nil
}

// fillMissing synthesizes fallback results for any panel-kind that never
// resolved before the deadline. Nothing is ever silently dropped: the
// synthetic results carry a not-attempted cause so callers can tell a forced
// fallback from a generated one.
func (o *Orchestrator) fillMissing(state *JobState) {
	state.mu.Lock()
	type missing struct {
		panel int
		kind  generate.Kind
	}
	var gaps []missing
	for i := range state.Panels {
		for _, kind := range generate.AllKinds() {
			if state.Panels[i].Assets[kind] == nil {
				gaps = append(gaps, missing{panel: i + 1, kind: kind})
			}
		}
	}
	state.mu.Unlock()

	for _, gap := range gaps {
		cause := generate.ErrNotAttempted
		ctx, cancel := context.WithTimeout(context.Background(), fallbackStoreTimeout)
		url := o.fallback.Produce(ctx, gap.kind, state.JobID, gap.panel, cause)
		cancel()

		state.setAsset(&AssetResult{
			Kind: gap.kind, PanelNumber: gap.panel,
			URL: url, IsFallback: true, Attempts: 1,
			LastError: cause.Error(), ErrorClass: generate.ClassDeadline,
		})
		o.publish(progress.Event{
			Type: progress.EventFallbackUsed, JobID: state.JobID,
			PanelNumber: gap.panel, Kind: gap.kind,
			URL: url, Error: cause.Error(), Attempts: 1, Fallback: true, At: time.Now(),
		})
	}
}

// publish assigns the event a correlation ID and forwards it to the sink.
// Sinks are non-blocking by contract.
func (o *Orchestrator) publish(e progress.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	o.sink.Publish(e)
}
