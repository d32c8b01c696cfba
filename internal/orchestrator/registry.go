package orchestrator

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRegistryTTL is how long a completed job stays queryable before the
// janitor evicts it.
const DefaultRegistryTTL = 30 * time.Minute

// Registry is a bounded-lifetime index of job states, letting observers look
// a running or recently finished job up by ID. Entries are evicted TTL after
// completion, so the registry never grows without bound the way a global
// per-story map would.
type Registry struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
	stop    chan struct{}
	stopped sync.Once
}

type registryEntry struct {
	state   *JobState
	doneAt  time.Time
	pending bool
}

// NewRegistry creates a registry whose janitor evicts completed jobs ttl
// after they finish. A zero ttl selects DefaultRegistryTTL. Close must be
// called to stop the janitor.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultRegistryTTL
	}
	r := &Registry{
		ttl:     ttl,
		entries: make(map[string]*registryEntry),
		stop:    make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Put registers a job state. Running jobs are never evicted; call Complete
// when the job finishes to start its TTL clock.
func (r *Registry) Put(state *JobState) {
	r.mu.Lock()
	r.entries[state.JobID] = &registryEntry{state: state, pending: true}
	r.mu.Unlock()
}

// Complete marks the job finished, starting its eviction TTL.
func (r *Registry) Complete(jobID string) {
	r.mu.Lock()
	if e, ok := r.entries[jobID]; ok {
		e.pending = false
		e.doneAt = time.Now()
	}
	r.mu.Unlock()
}

// Get returns the job state for jobID, if still registered.
func (r *Registry) Get(jobID string) (*JobState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	if !ok {
		return nil, false
	}
	return e.state, true
}

// Delete removes a job immediately, regardless of TTL.
func (r *Registry) Delete(jobID string) {
	r.mu.Lock()
	delete(r.entries, jobID)
	r.mu.Unlock()
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the janitor goroutine.
func (r *Registry) Close() {
	r.stopped.Do(func() { close(r.stop) })
}

// janitorInterval derives the sweep cadence from the TTL, capped so long
// TTLs still sweep at least once a minute.
func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

func (r *Registry) janitor() {
	ticker := time.NewTicker(janitorInterval(r.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictExpired(time.Now())
		}
	}
}

// evictExpired removes completed entries older than the TTL.
func (r *Registry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if !e.pending && now.Sub(e.doneAt) >= r.ttl {
			delete(r.entries, id)
			log.Debug().Str("job", id).Msg("Evicted expired job from registry")
		}
	}
}
