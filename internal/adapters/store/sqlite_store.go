// Package store implements the encrypted offline record buffer on an
// embedded SQLite file, plus the in-memory fallback used while the
// database is unavailable.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/halcyonlabs/vitalflow/internal/domain"
	"github.com/halcyonlabs/vitalflow/internal/ports"
)

// Config tunes retention and eviction. RetentionHours applies only to
// synced records; unsynced records are kept indefinitely.
type Config struct {
	Path           string `yaml:"path"`
	RetentionHours int    `yaml:"retention_hours"`
	SizeCapBytes   int64  `yaml:"size_cap_bytes"`
	EvictBatch     int    `yaml:"evict_batch"`
}

func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./data/vitalflow.db"
	}
	if c.RetentionHours <= 0 {
		c.RetentionHours = 72
	}
	if c.SizeCapBytes <= 0 {
		c.SizeCapBytes = 500 << 20
	}
	if c.EvictBatch <= 0 {
		c.EvictBatch = 200
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	data_type  TEXT NOT NULL,
	payload    BLOB NOT NULL,
	priority   TEXT NOT NULL,
	synced     INTEGER NOT NULL DEFAULT 0,
	size       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_synced_created ON records(synced, created_at);
`

// rowOverhead approximates per-row bookkeeping beyond the payload blob so
// the size cap tracks file growth, not just blob bytes.
const rowOverhead = 96

// SQLiteStore persists sealed records in a single database file. Inserts
// are serialized by the driver; reads for sync batches run concurrently
// with new inserts.
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
	cfg    Config

	now func() time.Time
}

func NewSQLiteStore(cfg Config, sealer *Sealer) (*SQLiteStore, error) {
	cfg.ApplyDefaults()
	if sealer == nil {
		return nil, fmt.Errorf("store: sealer is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	// Single writer; WAL keeps sync reads from blocking inserts.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLiteStore{db: db, sealer: sealer, cfg: cfg, now: time.Now}, nil
}

// newWithDB wires an existing database handle; used by tests to exercise
// error paths against a mocked driver.
func newWithDB(db *sql.DB, cfg Config, sealer *Sealer) *SQLiteStore {
	cfg.ApplyDefaults()
	return &SQLiteStore{db: db, sealer: sealer, cfg: cfg, now: time.Now}
}

// Persist seals the payload and appends a record. The returned id is a
// UUID and is never reused.
func (s *SQLiteStore) Persist(ctx context.Context, t domain.RecordType, payload []byte, p domain.Priority) (string, error) {
	sealed, err := s.sealer.Seal(payload)
	if err != nil {
		return "", fmt.Errorf("store: seal payload: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, created_at, data_type, payload, priority, synced, size)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		id, s.now().UnixNano(), string(t), sealed, string(p), len(sealed)+rowOverhead,
	)
	if err != nil {
		return "", fmt.Errorf("store: insert record: %w", err)
	}
	return id, nil
}

// Pending returns up to limit unsynced records, critical priority first,
// oldest first within a priority.
func (s *SQLiteStore) Pending(ctx context.Context, limit int) ([]domain.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, data_type, payload, priority
		 FROM records WHERE synced = 0
		 ORDER BY CASE priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 ELSE 2 END, created_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query pending: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredRecord
	for rows.Next() {
		var (
			r       domain.StoredRecord
			created int64
			dtype   string
			prio    string
		)
		if err := rows.Scan(&r.ID, &created, &dtype, &r.Payload, &prio); err != nil {
			return nil, fmt.Errorf("store: scan pending: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		r.DataType = domain.RecordType(dtype)
		r.Priority = domain.Priority(prio)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkSynced flips the synced flag for the given ids. Calling it twice
// with the same set is a no-op the second time.
func (s *SQLiteStore) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE records SET synced = 1 WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("store: mark synced: %w", err)
	}
	return nil
}

// SweepExpired deletes records past retention that have been synced.
// Unsynced records survive any age: the local copy may be the only one.
func (s *SQLiteStore) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionHours) * time.Hour).UnixNano()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE synced = 1 AND created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: sweep expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// EnforceSizeCap evicts the oldest synced records in batches until total
// size fits the ceiling or only unsynced records remain.
func (s *SQLiteStore) EnforceSizeCap(ctx context.Context) (int, error) {
	evicted := 0
	for {
		stats, err := s.Stats(ctx)
		if err != nil {
			return evicted, err
		}
		if stats.SizeBytes <= s.cfg.SizeCapBytes {
			return evicted, nil
		}

		res, err := s.db.ExecContext(ctx,
			`DELETE FROM records WHERE id IN (
				SELECT id FROM records WHERE synced = 1
				ORDER BY created_at ASC LIMIT ?)`, s.cfg.EvictBatch)
		if err != nil {
			return evicted, fmt.Errorf("store: evict batch: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			// Over cap but everything left is unsynced; not evictable.
			return evicted, nil
		}
		evicted += int(n)
	}
}

func (s *SQLiteStore) Stats(ctx context.Context) (ports.StoreStats, error) {
	var st ports.StoreStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN synced = 0 THEN 1 ELSE 0 END), 0), COALESCE(SUM(size), 0)
		 FROM records`).Scan(&st.TotalRecords, &st.UnsyncedCount, &st.SizeBytes)
	if err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.RecordStore = (*SQLiteStore)(nil)
