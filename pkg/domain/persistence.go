package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by RecordStore.Get for unknown ids.
var ErrRecordNotFound = errors.New("record not found")

// RecordStore is a minimal abstraction over durable backends for the
// reference profile service.
type RecordStore interface {
	// Get returns a copy of the stored record.
	Get(ctx context.Context, kind RecordKind, id string) (Record, error)
	// Put replaces the stored record.
	Put(ctx context.Context, rec Record) error
	// Update applies mutator to the stored record (or an empty one when absent)
	// and persists the result atomically.
	Update(ctx context.Context, kind RecordKind, id string, mutator func(*Record) error) (Record, error)
	// List returns all records of a kind ordered by id.
	List(ctx context.Context, kind RecordKind) ([]Record, error)
	// Delete removes a record, reporting whether it existed.
	Delete(ctx context.Context, kind RecordKind, id string) (bool, error)
}

// NotFound builds a wrapped ErrRecordNotFound naming the record.
func NotFound(kind RecordKind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
}
