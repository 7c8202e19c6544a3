// Package sqlite persists records to an embedded SQLite file using the pure
// Go modernc driver. Reads are served from memory; every mutation is written
// through before it becomes visible.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"petcore/internal/infra/persistence/memory"
	"petcore/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

// DefaultPath is used when no path is configured.
const DefaultPath = "petcore.db"

const schema = `CREATE TABLE IF NOT EXISTS records (
	record_key TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	payload BLOB NOT NULL
)`

// Store is a write-through SQLite record store.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and loads every
// stored record into memory.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	s := &Store{db: db, path: path}
	s.Store = memory.NewStore(memory.WithCommitHook(s.persist))
	records, err := load(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.Import(records)
	return s, nil
}

func recordKey(kind domain.RecordKind, id string) string { return string(kind) + "/" + id }

func load(ctx context.Context, db *sql.DB) ([]domain.Record, error) {
	rows, err := db.QueryContext(ctx, `SELECT record_key, kind, id, payload FROM records`)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Record
	for rows.Next() {
		var (
			key, kind, id string
			payload       []byte
		)
		if err := rows.Scan(&key, &kind, &id, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := domain.NewRecord(domain.RecordKind(kind), id)
		if err := json.Unmarshal(payload, &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) persist(ctx context.Context, ch memory.Change) error {
	key := recordKey(ch.Record.Kind, ch.Record.ID)
	if ch.Deleted {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE record_key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	}
	payload, err := json.Marshal(ch.Record.Fields)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO records(record_key,kind,id,payload) VALUES(?,?,?,?) ON CONFLICT(record_key) DO UPDATE SET payload=excluded.payload`,
		key, string(ch.Record.Kind), ch.Record.ID, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
