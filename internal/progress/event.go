// Package progress carries lifecycle events from the panel pipeline to
// observers. Publishing is fire-and-forget: the pipeline never depends on
// delivery for correctness, only for observability.
package progress

import (
	"time"

	"github.com/fpang/panelforge/internal/generate"
)

// EventType tags a lifecycle notification.
type EventType string

const (
	// EventStarted fires when a panel's asset generation begins.
	EventStarted EventType = "panel_started"

	// EventSucceeded fires when a real asset resolves for a panel kind.
	EventSucceeded EventType = "asset_succeeded"

	// EventFailed fires when a generation attempt terminally fails,
	// immediately before the fallback engages.
	EventFailed EventType = "asset_failed"

	// EventFallbackUsed fires when a placeholder asset was substituted.
	EventFallbackUsed EventType = "fallback_used"

	// EventJobComplete fires exactly once when every panel has resolved.
	EventJobComplete EventType = "job_complete"
)

// Event is one lifecycle notification. Events are append-only and ordered per
// panel-kind stream; there is no cross-panel ordering guarantee.
type Event struct {
	// ID is a unique correlation ID assigned at publish time, letting
	// at-most-once consumers deduplicate across reconnects.
	ID string `json:"id"`

	Type        EventType     `json:"type"`
	JobID       string        `json:"jobId"`
	PanelNumber int           `json:"panelNumber,omitempty"`
	Kind        generate.Kind `json:"kind,omitempty"`
	URL         string        `json:"url,omitempty"`
	Error       string        `json:"error,omitempty"`
	Attempts    int           `json:"attempts,omitempty"`
	Fallback    bool          `json:"fallback,omitempty"`
	At          time.Time     `json:"at"`
}

// Sink receives lifecycle events. Publish must not block the caller and must
// be safe for concurrent use; delivery is at-most-once, best-effort.
type Sink interface {
	Publish(e Event)
}
