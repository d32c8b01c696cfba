// Package ratelimit enforces a minimum spacing between calls to a given
// external generator kind. Vendors throw 500s under burst load, so the
// pipeline spaces call starts instead of relying on retries alone.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/panelforge/internal/generate"
)

// Default minimum inter-call intervals per generator kind.
const (
	DefaultImageInterval  = 500 * time.Millisecond
	DefaultSpeechInterval = 200 * time.Millisecond
	DefaultMusicInterval  = 500 * time.Millisecond
)

// Limiter spaces call starts per generator kind. Each Acquire reserves the
// next grant slot under a mutex, then waits for its slot outside the lock, so
// a slow sleeper never blocks reservations for other kinds or later callers.
// Grant times are stamped at call start, not call completion: a slow vendor
// call must not starve the spacing check.
type Limiter struct {
	mu       sync.Mutex
	interval map[generate.Kind]time.Duration
	next     map[generate.Kind]time.Time

	// now and sleepUntil are injectable for deterministic tests.
	now        func() time.Time
	sleepUntil func(ctx context.Context, t time.Time) error
}

// New creates a Limiter with the given per-kind intervals. Kinds absent from
// the map are not limited.
func New(intervals map[generate.Kind]time.Duration) *Limiter {
	m := make(map[generate.Kind]time.Duration, len(intervals))
	for k, v := range intervals {
		m[k] = v
	}
	return &Limiter{
		interval:   m,
		next:       make(map[generate.Kind]time.Time),
		now:        time.Now,
		sleepUntil: realSleepUntil,
	}
}

// NewDefault creates a Limiter with the default per-kind intervals.
func NewDefault() *Limiter {
	return New(map[generate.Kind]time.Duration{
		generate.KindImage:  DefaultImageInterval,
		generate.KindSpeech: DefaultSpeechInterval,
		generate.KindMusic:  DefaultMusicInterval,
	})
}

// Acquire blocks until the configured spacing since the previous grant of the
// same kind is satisfied, then returns. Callers are granted slots in the order
// they reserve them; there is no reordering. Context cancellation aborts the
// wait with ctx.Err() and releases nothing: the reserved slot simply goes
// unused, which keeps the spacing guarantee intact.
func (l *Limiter) Acquire(ctx context.Context, kind generate.Kind) error {
	interval, limited := l.intervalFor(kind)
	if !limited {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.now()
	grant := l.next[kind]
	if grant.Before(now) {
		grant = now
	}
	l.next[kind] = grant.Add(interval)
	l.mu.Unlock()

	if wait := grant.Sub(now); wait > 0 {
		log.Trace().
			Str("kind", kind.String()).
			Dur("wait", wait).
			Msg("Rate limiter delaying call")
	}
	return l.sleepUntil(ctx, grant)
}

func (l *Limiter) intervalFor(kind generate.Kind) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.interval[kind]
	return d, ok && d > 0
}

// realSleepUntil waits for wall-clock time t or context cancellation.
func realSleepUntil(ctx context.Context, t time.Time) error {
	wait := time.Until(t)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
