package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventConvertStart EventType = "convert_start"
	EventConvertDone  EventType = "convert_done"
	EventProbe        EventType = "probe"
	EventInstall      EventType = "install"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
}

// ConvertEvent describes one dispatch, before and after the worker runs.
type ConvertEvent struct {
	EventBase
	Action   ActionKind    `json:"action"`
	Chars    int           `json:"chars"`
	Duration time.Duration `json:"duration,omitempty"`
	Kind     ErrorKind     `json:"kind,omitempty"`
	Cached   bool          `json:"cached,omitempty"`
}

// ProbeEvent reports a runtime or library probe.
type ProbeEvent struct {
	EventBase
	Target  string `json:"target"`
	Present bool   `json:"present"`
}

// InstallEvent reports a package manager run.
type InstallEvent struct {
	EventBase
	Packages []string `json:"packages"`
	Success  bool     `json:"success"`
}

// Hooks defines optional observer callbacks. Nil callbacks are skipped.
type Hooks struct {
	OnConvertStart func(context.Context, *ConvertEvent)
	OnConvertDone  func(context.Context, *ConvertEvent)
	OnProbe        func(context.Context, *ProbeEvent)
	OnInstall      func(context.Context, *InstallEvent)
}

// Merge returns hooks calling h first and then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnConvertStart: chain(h.OnConvertStart, other.OnConvertStart),
		OnConvertDone:  chain(h.OnConvertDone, other.OnConvertDone),
		OnProbe:        chain(h.OnProbe, other.OnProbe),
		OnInstall:      chain(h.OnInstall, other.OnInstall),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// Emit invokes fn if it is set.
func Emit[E any](ctx context.Context, fn func(context.Context, *E), e *E) {
	if fn != nil {
		fn(ctx, e)
	}
}
