package screen

import (
	"errors"
	"time"

	"petcore/internal/edit"
	"petcore/internal/observability"
)

// ErrBusy is returned when the control that triggers an operation is still
// disabled by an earlier call.
var ErrBusy = errors.New("operation already in progress")

// ErrNotLoaded is returned by operations that need server data first.
var ErrNotLoaded = errors.New("screen data not loaded")

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type options struct {
	logger   observability.Logger
	metrics  observability.MetricsRecorder
	clock    Clock
	rollback edit.RollbackPolicy
}

// Option configures a controller.
type Option func(*options)

// WithLogger sets the controller logger.
func WithLogger(l observability.Logger) Option {
	return func(o *options) { o.logger = observability.OrNop(l) }
}

// WithMetrics sets the recorder used for uploads, saves and loads.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the clock used for age rendering.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRollbackPolicy selects what failed field edits do to the visible value.
func WithRollbackPolicy(p edit.RollbackPolicy) Option {
	return func(o *options) { o.rollback = p }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  observability.NopLogger(),
		metrics: observability.NopMetrics(),
		clock:   ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
