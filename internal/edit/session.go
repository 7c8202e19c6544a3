// Package edit implements the single-field edit round trip: open an editor
// for a field, collect input locally, validate and encode on commit, apply the
// result optimistically and persist it asynchronously.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petcore/internal/fieldcodec"
	"petcore/internal/observability"
	"petcore/internal/task"
	"petcore/pkg/domain"
)

// State is the session's position in the edit lifecycle.
type State int

const (
	StateOpened State = iota
	StateEditing
	StateCommitted
	StatePersisted
	StatePersistFailed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "opened"
	case StateEditing:
		return "editing"
	case StateCommitted:
		return "committed"
	case StatePersisted:
		return "persisted"
	case StatePersistFailed:
		return "persist_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StatePersisted || s == StatePersistFailed }

// RollbackPolicy decides what happens to the optimistic update when the
// persist call fails.
type RollbackPolicy int

const (
	// KeepOptimistic leaves the new value visible after a failed persist.
	KeepOptimistic RollbackPolicy = iota
	// RollbackOnFailure restores the values shown before the commit.
	RollbackOnFailure
)

// ErrInvalidTransition is returned when an operation does not apply to the
// session's current state.
var ErrInvalidTransition = errors.New("invalid edit transition")

// PersistFunc sends the encoded wire fields to the server.
type PersistFunc func(ctx context.Context, fields map[string]string) error

// ApplyFunc updates the visible record with wire fields.
type ApplyFunc func(fields map[string]string)

// Option configures a Session.
type Option func(*Session)

// WithRollbackPolicy selects the failure policy. Defaults to KeepOptimistic.
func WithRollbackPolicy(p RollbackPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithLogger sets the session logger.
func WithLogger(l observability.Logger) Option {
	return func(s *Session) { s.logger = observability.OrNop(l) }
}

// WithMetrics records persist latency and outcome under "edit.persist".
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Session is one field edit. It is owned by the UI goroutine.
type Session struct {
	field   fieldcodec.EditableField
	prior   map[string]string
	state   State
	policy  RollbackPolicy
	wire    map[string]string
	err     error
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

// Open decodes the field's current value from the visible record and selects
// the editor shape from the field table.
func Open(fieldID string, record map[string]string, opts ...Option) *Session {
	prior := make(map[string]string, len(record))
	for k, v := range record {
		prior[k] = v
	}
	s := &Session{
		field:   fieldcodec.DecodeRecord(fieldID, record),
		prior:   prior,
		state:   StateOpened,
		logger:  observability.NopLogger(),
		metrics: observability.NopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Field returns the current editor state.
func (s *Session) Field() fieldcodec.EditableField {
	f := s.field
	f.Parts = append([]fieldcodec.Part(nil), s.field.Parts...)
	f.Options = append([]string(nil), s.field.Options...)
	return f
}

// Spec returns the field table entry that drives the editor.
func (s *Session) Spec() fieldcodec.FieldSpec { return fieldcodec.Lookup(s.field.FieldID) }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the last persist error, if any.
func (s *Session) Err() error { return s.err }

// Policy returns the configured rollback policy.
func (s *Session) Policy() RollbackPolicy { return s.policy }

func (s *Session) beginEdit() error {
	if s.state != StateOpened && s.state != StateEditing {
		return fmt.Errorf("edit %s in state %s: %w", s.field.FieldID, s.state, ErrInvalidTransition)
	}
	s.state = StateEditing
	return nil
}

// SetValue replaces the editor value (text, label, date or number).
func (s *Session) SetValue(v string) error {
	if err := s.beginEdit(); err != nil {
		return err
	}
	s.field.Value = v
	return nil
}

// SetPart updates one composite part. Input is trimmed the way the form
// fields trim it.
func (s *Session) SetPart(name, v string) error {
	if s.field.Kind != domain.KindComposite {
		return fmt.Errorf("edit %s: not a composite field: %w", s.field.FieldID, ErrInvalidTransition)
	}
	if err := s.beginEdit(); err != nil {
		return err
	}
	for i := range s.field.Parts {
		if s.field.Parts[i].Name == name {
			s.field.Parts[i].Value = strings.TrimSpace(v)
			s.field.Value = fieldcodec.ContactFromParts(s.field.Parts).Join()
			return nil
		}
	}
	return fmt.Errorf("edit %s: unknown part %q: %w", s.field.FieldID, name, domain.ErrParseFailure)
}

// Commit validates and encodes the editor value. Local failures leave the
// session in Editing so the user can correct the input.
func (s *Session) Commit() (map[string]string, error) {
	if err := s.beginEdit(); err != nil {
		return nil, err
	}
	wire, err := fieldcodec.Encode(s.field)
	if err != nil {
		return nil, err
	}
	s.wire = wire
	s.state = StateCommitted
	return copyFields(wire), nil
}

// Sent returns a copy of the wire fields produced by Commit, or nil before it.
func (s *Session) Sent() map[string]string {
	if s.wire == nil {
		return nil
	}
	return copyFields(s.wire)
}

// Rollback returns the values that were visible before the commit for every
// committed key. Keys that were absent map to "".
func (s *Session) Rollback() map[string]string {
	out := make(map[string]string, len(s.wire))
	for k := range s.wire {
		out[k] = s.prior[k]
	}
	return out
}

// Resolve records the persist outcome and returns the fields to re-apply
// under the rollback policy, or nil when the visible state stays as is.
func (s *Session) Resolve(err error) (map[string]string, error) {
	if s.state != StateCommitted {
		return nil, fmt.Errorf("resolve %s in state %s: %w", s.field.FieldID, s.state, ErrInvalidTransition)
	}
	if err == nil {
		s.state = StatePersisted
		return nil, nil
	}
	s.state = StatePersistFailed
	s.err = err
	if s.policy == RollbackOnFailure {
		return s.Rollback(), nil
	}
	return nil, nil
}

// Submit commits the edit, applies it optimistically and persists it on
// scope. done runs on the UI goroutine with the persist error unless the
// scope is disposed first. Local errors are returned directly and nothing
// is sent.
func (s *Session) Submit(scope *task.Scope, persist PersistFunc, apply ApplyFunc, done func(error)) error {
	if scope.Disposed() {
		return task.ErrDisposed
	}
	wire, err := s.Commit()
	if err != nil {
		return err
	}
	if apply != nil {
		apply(copyFields(wire))
	}
	fieldID := s.field.FieldID
	started := time.Now()
	s.logger.Debug("persisting field", "field", fieldID, "keys", len(wire))
	scope.Go(func(ctx context.Context) error {
		return persist(ctx, wire)
	}, func(err error) {
		s.metrics.Observe(scope.Context(), "edit.persist", err == nil, time.Since(started))
		restore, _ := s.Resolve(err)
		if err != nil {
			s.logger.Warn("persist failed", "field", fieldID, "error", err)
		}
		if restore != nil && apply != nil {
			apply(restore)
		}
		if done != nil {
			done(err)
		}
	})
	return nil
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
