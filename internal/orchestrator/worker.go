package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/panelforge/internal/generate"
	"github.com/fpang/panelforge/internal/progress"
	"github.com/fpang/panelforge/internal/retry"
)

// fallbackStoreTimeout bounds placeholder persistence after the asset context
// is already dead. Detached from the job context so a deadline never turns a
// recordable fallback into a silent empty URL.
const fallbackStoreTimeout = 15 * time.Second

// runPanel resolves all assets for exactly one panel. The three kinds are
// independent of each other and run concurrently. runPanel never fails: every
// outcome is captured as an AssetResult, so one panel can never abort its
// siblings.
func (o *Orchestrator) runPanel(ctx context.Context, jobID string, desc PanelDescriptor, state *JobState) {
	log.Info().Str("job", jobID).Int("panel", desc.PanelNumber).Msg("Panel processing started")
	start := time.Now()

	g := new(errgroup.Group)
	for _, kind := range generate.AllKinds() {
		g.Go(func() error {
			o.resolveAsset(ctx, jobID, desc, kind, state)
			return nil
		})
	}
	g.Wait()

	log.Info().
		Str("job", jobID).
		Int("panel", desc.PanelNumber).
		Dur("duration", time.Since(start)).
		Msg("Panel processing completed")
}

// resolveAsset drives one panel-kind through the rate limiter, retry executor,
// storage, and (on exhaustion) the fallback producer, recording the outcome
// in the job state.
func (o *Orchestrator) resolveAsset(ctx context.Context, jobID string, desc PanelDescriptor, kind generate.Kind, state *JobState) {
	o.publish(progress.Event{
		Type: progress.EventStarted, JobID: jobID,
		PanelNumber: desc.PanelNumber, Kind: kind, At: time.Now(),
	})

	// Panels without a music reference use the bundled background track;
	// this is the designed music path, not a degradation.
	if kind == generate.KindMusic && desc.MusicRef == "" {
		res := &AssetResult{
			Kind: kind, PanelNumber: desc.PanelNumber,
			URL: o.staticMusicURL, Attempts: 1,
		}
		state.setAsset(res)
		o.publish(progress.Event{
			Type: progress.EventSucceeded, JobID: jobID,
			PanelNumber: desc.PanelNumber, Kind: kind, URL: res.URL, Attempts: 1, At: time.Now(),
		})
		return
	}

	actx, cancel := context.WithTimeout(ctx, o.cfg.AssetTimeout)
	defer cancel()

	state.setAsset(o.generateAsset(actx, jobID, desc, kind))
}

// genOutput pairs generated bytes with their MIME type through the retry
// executor.
type genOutput struct {
	data []byte
	mime string
}

// generateAsset returns a fully resolved AssetResult: a stored real asset, or
// a fallback carrying the terminal classified error. It never returns nil.
func (o *Orchestrator) generateAsset(ctx context.Context, jobID string, desc PanelDescriptor, kind generate.Kind) *AssetResult {
	gen := o.generators[kind]
	attempts := 1
	var terminal error

	switch {
	case gen == nil:
		terminal = generate.NewError(generate.ClassFatal,
			fmt.Errorf("no %s generator configured", kind))

	default:
		if err := o.limiter.Acquire(ctx, kind); err != nil {
			terminal = generate.NewError(generate.ClassDeadline,
				fmt.Errorf("rate limiter wait aborted: %w", err))
			break
		}

		gdesc := generate.Descriptor{PanelNumber: desc.PanelNumber, Prompt: desc.promptFor(kind)}
		out, n, err := retry.Do(ctx, o.cfg.Retry, func(ctx context.Context) (genOutput, error) {
			data, mime, err := gen.Generate(ctx, gdesc)
			return genOutput{data: data, mime: mime}, err
		})
		attempts = n
		if err != nil {
			terminal = err
			break
		}

		url, serr := o.store.Store(ctx, out.data, assetPath(jobID, desc.PanelNumber, kind, out.mime), out.mime)
		if serr != nil {
			// Generation worked but the bytes are unreachable; terminal
			// either way, the fallback path takes over.
			terminal = fmt.Errorf("store %s asset: %w", kind, serr)
			break
		}

		o.publish(progress.Event{
			Type: progress.EventSucceeded, JobID: jobID,
			PanelNumber: desc.PanelNumber, Kind: kind, URL: url, Attempts: attempts, At: time.Now(),
		})
		return &AssetResult{
			Kind: kind, PanelNumber: desc.PanelNumber,
			URL: url, Attempts: attempts,
		}
	}

	o.publish(progress.Event{
		Type: progress.EventFailed, JobID: jobID,
		PanelNumber: desc.PanelNumber, Kind: kind,
		Error: terminal.Error(), Attempts: attempts, At: time.Now(),
	})

	fbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackStoreTimeout)
	defer cancel()
	url := o.fallback.Produce(fbCtx, kind, jobID, desc.PanelNumber, terminal)

	o.publish(progress.Event{
		Type: progress.EventFallbackUsed, JobID: jobID,
		PanelNumber: desc.PanelNumber, Kind: kind,
		URL: url, Error: terminal.Error(), Attempts: attempts, Fallback: true, At: time.Now(),
	})

	return &AssetResult{
		Kind: kind, PanelNumber: desc.PanelNumber,
		URL: url, IsFallback: true, Attempts: attempts,
		LastError: terminal.Error(), ErrorClass: generate.ClassOf(terminal),
	}
}

// assetPath builds the logical storage path for one panel asset.
func assetPath(jobID string, panelNumber int, kind generate.Kind, mimeType string) string {
	return fmt.Sprintf("stories/%s/panel_%02d_%s.%s", jobID, panelNumber, kind, extFor(mimeType))
}

// extFor maps a MIME type to a file extension, ignoring parameters like
// ";rate=24000".
func extFor(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch strings.TrimSpace(mimeType) {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "bin"
	}
}
