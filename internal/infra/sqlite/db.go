// Package sqlite provides SQLite-based persistent storage for ganbari.
// Uses WAL mode for concurrent reads and a single pooled connection so every
// write transaction is serialized.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
	sqlite3 "modernc.org/sqlite/lib"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a SQLite connection with WAL mode and migrations.
// A DB handed to a Tx callback runs every query inside that transaction.
type DB struct {
	db   *sql.DB
	q    dbtx
	inTx bool
}

// Open creates or opens the SQLite database at dir/ganbari.db.
// Enables WAL mode, foreign keys, a 5-second busy timeout and
// BEGIN IMMEDIATE transactions.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "ganbari.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Single writer: read-modify-write sequences cannot interleave.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db, q: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	if d.inTx {
		return nil
	}
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Tx runs fn inside one transaction. Nested calls join the outer transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (d *DB) Tx(ctx context.Context, fn func(tx *DB) error) error {
	if d.inTx {
		return fn(d)
	}

	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&DB{db: d.db, q: sqlTx, inTx: true}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS children (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			nickname   TEXT NOT NULL,
			age        INTEGER NOT NULL,
			theme      TEXT NOT NULL DEFAULT 'pink',
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			category    TEXT NOT NULL,
			icon        TEXT NOT NULL,
			base_points INTEGER NOT NULL DEFAULT 5,
			age_min     INTEGER,
			age_max     INTEGER,
			is_visible  BOOLEAN NOT NULL DEFAULT 1,
			sort_order  INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL
		)`,

		// One row per (child, activity, day), cancelled rows included.
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id      INTEGER NOT NULL REFERENCES children(id),
			activity_id   INTEGER NOT NULL REFERENCES activities(id),
			points        INTEGER NOT NULL,
			streak_days   INTEGER NOT NULL DEFAULT 1,
			streak_bonus  INTEGER NOT NULL DEFAULT 0,
			recorded_date TEXT NOT NULL,
			recorded_at   INTEGER NOT NULL,
			cancelled     BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_activity_logs_unique_daily
			ON activity_logs(child_id, activity_id, recorded_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_child_date ON activity_logs(child_id, recorded_date)`,

		// Append-only point ledger. Balance = SUM(amount).
		`CREATE TABLE IF NOT EXISTS point_ledger (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id     INTEGER NOT NULL REFERENCES children(id),
			amount       INTEGER NOT NULL,
			type         TEXT NOT NULL,
			description  TEXT,
			reference_id INTEGER,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_point_ledger_child ON point_ledger(child_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS statuses (
			child_id   INTEGER NOT NULL REFERENCES children(id),
			category   TEXT NOT NULL,
			value      REAL NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (child_id, category)
		)`,

		`CREATE TABLE IF NOT EXISTS status_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id      INTEGER NOT NULL REFERENCES children(id),
			category      TEXT NOT NULL,
			value         REAL NOT NULL,
			change_amount REAL NOT NULL,
			change_type   TEXT NOT NULL,
			recorded_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_history_child_cat
			ON status_history(child_id, category, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS market_benchmarks (
			age      INTEGER NOT NULL,
			category TEXT NOT NULL,
			mean     REAL NOT NULL,
			std_dev  REAL NOT NULL,
			source   TEXT,
			PRIMARY KEY (age, category)
		)`,

		`CREATE TABLE IF NOT EXISTS evaluations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id     INTEGER NOT NULL REFERENCES children(id),
			week_start   TEXT NOT NULL,
			week_end     TEXT NOT NULL,
			scores_json  TEXT NOT NULL,
			bonus_points INTEGER NOT NULL DEFAULT 0,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_evaluations_child_week ON evaluations(child_id, week_start)`,

		`CREATE TABLE IF NOT EXISTS login_bonuses (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			child_id         INTEGER NOT NULL REFERENCES children(id),
			login_date       TEXT NOT NULL,
			rank             TEXT NOT NULL,
			base_points      INTEGER NOT NULL,
			multiplier       REAL NOT NULL DEFAULT 1.0,
			total_points     INTEGER NOT NULL,
			consecutive_days INTEGER NOT NULL DEFAULT 1,
			created_at       INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_login_bonuses_child_date ON login_bonuses(child_id, login_date)`,

		`CREATE TABLE IF NOT EXISTS job_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			job         TEXT NOT NULL,
			run_id      TEXT NOT NULL UNIQUE,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			children    INTEGER NOT NULL DEFAULT 0,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job, started_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
