// Package memory provides the in-memory record store. The durable backends
// embed it and persist each change through a commit hook.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"petcore/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

// Change describes one mutation handed to a CommitHook.
type Change struct {
	Record  domain.Record
	Deleted bool
}

// CommitHook persists a change before it becomes visible in memory. A
// returned error aborts the mutation.
type CommitHook func(ctx context.Context, change Change) error

// Store keeps records in process memory. Mutations are serialized.
type Store struct {
	mu      sync.RWMutex
	records map[domain.RecordKind]map[string]domain.Record
	commit  CommitHook
}

// Option configures a Store.
type Option func(*Store)

// WithCommitHook installs a write-through hook.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.commit = h }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{records: make(map[domain.RecordKind]map[string]domain.Record)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import loads records without invoking the commit hook. Existing entries
// with the same kind and id are replaced.
func (s *Store) Import(records []domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.bucket(rec.Kind)[rec.ID] = rec.Clone()
	}
}

// Export returns a copy of every record ordered by kind, then id.
func (s *Store) Export() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Record
	for _, bucket := range s.records {
		for _, rec := range bucket {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) bucket(kind domain.RecordKind) map[string]domain.Record {
	b, ok := s.records[kind]
	if !ok {
		b = make(map[string]domain.Record)
		s.records[kind] = b
	}
	return b
}

// Get returns a copy of the stored record.
func (s *Store) Get(_ context.Context, kind domain.RecordKind, id string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[kind][id]
	if !ok {
		return domain.Record{}, domain.NotFound(kind, id)
	}
	return rec.Clone(), nil
}

// Put replaces the stored record.
func (s *Store) Put(ctx context.Context, rec domain.Record) error {
	if err := validate(rec.Kind, rec.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, Change{Record: rec.Clone()})
}

// Update applies mutator to a copy of the stored record, or to an empty one
// when absent, and stores the result. The mutator may not change kind or id.
func (s *Store) Update(ctx context.Context, kind domain.RecordKind, id string, mutator func(*domain.Record) error) (domain.Record, error) {
	if err := validate(kind, id); err != nil {
		return domain.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[kind][id]
	if ok {
		rec = rec.Clone()
	} else {
		rec = domain.NewRecord(kind, id)
	}
	if err := mutator(&rec); err != nil {
		return domain.Record{}, err
	}
	if rec.Kind != kind || rec.ID != id {
		return domain.Record{}, fmt.Errorf("update %s %s: mutator changed identity", kind, id)
	}
	if err := s.apply(ctx, Change{Record: rec.Clone()}); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// List returns all records of a kind ordered by id.
func (s *Store) List(_ context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.records[kind]
	out := make([]domain.Record, 0, len(bucket))
	for _, rec := range bucket {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes a record, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, kind domain.RecordKind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[kind][id]
	if !ok {
		return false, nil
	}
	if err := s.apply(ctx, Change{Record: rec.Clone(), Deleted: true}); err != nil {
		return false, err
	}
	return true, nil
}

// apply runs the commit hook, then mutates memory. Callers hold s.mu.
func (s *Store) apply(ctx context.Context, ch Change) error {
	if s.commit != nil {
		if err := s.commit(ctx, ch); err != nil {
			return fmt.Errorf("commit %s %s: %w", ch.Record.Kind, ch.Record.ID, err)
		}
	}
	if ch.Deleted {
		delete(s.records[ch.Record.Kind], ch.Record.ID)
		return nil
	}
	if ch.Record.Fields == nil {
		ch.Record.Fields = map[string]string{}
	}
	s.bucket(ch.Record.Kind)[ch.Record.ID] = ch.Record
	return nil
}

var errInvalidKey = errors.New("record kind and id are required")

func validate(kind domain.RecordKind, id string) error {
	if kind == "" || id == "" {
		return errInvalidKey
	}
	return nil
}
