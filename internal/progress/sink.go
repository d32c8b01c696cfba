package progress

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Discard drops every event. Useful default when no observer is wired.
type Discard struct{}

func (Discard) Publish(Event) {}

// LogSink writes every event as a structured zerolog line.
type LogSink struct{}

func (LogSink) Publish(e Event) {
	var evt *zerolog.Event
	switch e.Type {
	case EventFailed:
		evt = log.Warn()
	case EventFallbackUsed:
		evt = log.Warn()
	default:
		evt = log.Info()
	}

	evt = evt.
		Str("event", string(e.Type)).
		Str("job", e.JobID)
	if e.PanelNumber > 0 {
		evt = evt.Int("panel", e.PanelNumber)
	}
	if e.Kind != "" {
		evt = evt.Str("kind", e.Kind.String())
	}
	if e.URL != "" {
		evt = evt.Str("url", e.URL)
	}
	if e.Attempts > 0 {
		evt = evt.Int("attempts", e.Attempts)
	}
	if e.Error != "" {
		evt = evt.Str("error", e.Error)
	}
	if e.Fallback {
		evt = evt.Bool("fallback", true)
	}
	evt.Msg("Progress event")
}

// Multi fans one event out to several sinks.
type Multi []Sink

func (m Multi) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}
