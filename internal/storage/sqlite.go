package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// DB is the repair journal backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures the journal table exists.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS repairs (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id  TEXT NOT NULL,
  ts          TEXT NOT NULL,          -- RFC3339Nano
  rule        TEXT NOT NULL,
  message     TEXT NOT NULL,
  action_json TEXT,                   -- NULL = no action payload
  outcome     TEXT NOT NULL,
  error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_repairs_session ON repairs(session_id);
CREATE INDEX IF NOT EXISTS idx_repairs_ts ON repairs(ts);
`)
	return err
}

// Record appends one attempted repair. It satisfies validation.Journal.
func (db *DB) Record(ctx context.Context, e validation.JournalEntry) error {
	var action any
	if e.Action != nil {
		b, err := json.Marshal(e.Action)
		if err != nil {
			return fmt.Errorf("encode action: %w", err)
		}
		action = string(b)
	}
	_, err := db.conn.ExecContext(ctx, `
INSERT INTO repairs(session_id, ts, rule, message, action_json, outcome, error)
VALUES(?,?,?,?,?,?,?)`,
		e.SessionID, e.At.UTC().Format(time.RFC3339Nano), e.Rule, e.Message, action, string(e.Outcome), nz(e.Err))
	return err
}

// nz maps "" to NULL.
func nz(s string) any {
	if s == "" {
		return nil
	}
	return s
}
