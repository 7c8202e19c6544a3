// Package observability provides the logging and metrics hooks shared by the
// screen controllers, the reference backend and the CLI.
package observability

import (
	"context"
	"time"
)

// Logger is the structured logging surface used across petcore. Arguments
// are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder captures the outcome and latency of an operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

// NopMetrics returns a MetricsRecorder that discards everything.
func NopMetrics() MetricsRecorder { return noopMetrics{} }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// Time runs fn and records its outcome under operation.
func Time(ctx context.Context, m MetricsRecorder, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if m != nil {
		m.Observe(ctx, operation, err == nil, time.Since(start))
	}
	return err
}
