package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// List returns journaled repairs, newest first (the journal is append-only,
// so id order is recording order). An empty sessionID lists
// every session.
func (db *DB) List(ctx context.Context, sessionID string, limit, offset int) ([]RepairRow, error) {
	q := `
SELECT id, session_id, ts, rule, message, action_json, outcome, COALESCE(error,'')
  FROM repairs`
	args := []any{}
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RepairRow
	for rows.Next() {
		var (
			rr      RepairRow
			ts      string
			action  sql.NullString
			outcome string
		)
		if err := rows.Scan(&rr.ID, &rr.SessionID, &ts, &rr.Rule, &rr.Message, &action, &outcome, &rr.Error); err != nil {
			return nil, err
		}
		rr.Outcome = validation.Outcome(outcome)
		// Parse RFC3339Nano first, fallback to RFC3339
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rr.At = t
		} else if t2, err2 := time.Parse(time.RFC3339, ts); err2 == nil {
			rr.At = t2
		}
		if action.Valid {
			var a repair.Action
			if err := json.Unmarshal([]byte(action.String), &a); err == nil {
				rr.Action = &a
			}
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// Summary counts journaled repairs per outcome.
func (db *DB) Summary(ctx context.Context, sessionID string) (map[validation.Outcome]int, error) {
	q := `SELECT outcome, COUNT(1) FROM repairs`
	args := []any{}
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` GROUP BY outcome`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[validation.Outcome]int{}
	for rows.Next() {
		var (
			o string
			n int
		)
		if err := rows.Scan(&o, &n); err != nil {
			return nil, err
		}
		out[validation.Outcome(o)] = n
	}
	return out, rows.Err()
}
