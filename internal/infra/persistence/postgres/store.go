// Package postgres persists records to PostgreSQL through the pgx
// database/sql driver, mirroring the sqlite backend's write-through model.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"petcore/internal/infra/persistence/memory"
	"petcore/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/petcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the database opener for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

const schema = `CREATE TABLE IF NOT EXISTS records (
	record_key TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a write-through Postgres record store.
type Store struct {
	*memory.Store
	db *sql.DB
}

// NewStore connects with dsn (default local database), ensures the records
// table and hydrates memory from it.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure records table: %w", err)
	}
	records, err := loadRecords(ctx, db)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	s.Store = memory.NewStore(memory.WithCommitHook(s.persist))
	s.Import(records)
	return s, nil
}

func loadRecords(ctx context.Context, db *sql.DB) ([]domain.Record, error) {
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
			return nil, fmt.Errorf("scan records: %w", err)
		}
		rec := domain.NewRecord(domain.RecordKind(kind), id)
		if err := json.Unmarshal(payload, &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *Store) persist(ctx context.Context, ch memory.Change) (retErr error) {
	key := string(ch.Record.Kind) + "/" + ch.Record.ID
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if ch.Deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE record_key = $1`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	} else {
		payload, err := json.Marshal(ch.Record.Fields)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records(record_key, kind, id, payload) VALUES ($1, $2, $3, $4) ON CONFLICT (record_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
			key, string(ch.Record.Kind), ch.Record.ID, string(payload)); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }
