// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/sqlitepool"
)

const attemptsSchema = `
	CREATE TABLE IF NOT EXISTS auth_attempts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		outcome    TEXT NOT NULL,
		timestamp  TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		distance   REAL,
		threshold  REAL,
		confidence REAL,
		window_id  TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS auth_attempts_user_time
		ON auth_attempts (user_id, timestamp);
`

// timestampLayout is fixed width so that text ordering in SQL matches
// time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path   string
	Clock  clock.Clock
	Logger *slog.Logger
}

// SQLiteSink stores records in an auth_attempts table.
type SQLiteSink struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

// OpenSQLite opens or creates the attempts database at cfg.Path.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteSink, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:    cfg.Path,
		Schema:  attemptsSchema,
		Durable: true,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return &SQLiteSink{pool: pool, clock: cfg.Clock}, nil
}

// Append inserts record.
func (s *SQLiteSink) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	stamp(&record, s.clock)

	return s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO auth_attempts
				(id, user_id, outcome, timestamp, reason, distance, threshold, confidence, window_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					record.ID,
					record.UserID,
					string(record.Outcome),
					record.Timestamp.Format(timestampLayout),
					record.Reason,
					nullableFloat(record.Distance),
					nullableFloat(record.Threshold),
					nullableFloat(record.Confidence),
					record.Window,
				},
			})
		if err != nil {
			return fmt.Errorf("audit: inserting attempt: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit records, newest first. An empty userID
// lists every user.
func (s *SQLiteSink) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, outcome, timestamp, reason, distance, threshold, confidence, window_id
		FROM auth_attempts`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var records []Record
	err := s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				timestamp, err := time.Parse(timestampLayout, stmt.ColumnText(3))
				if err != nil {
					return fmt.Errorf("audit: parsing timestamp of %s: %w", stmt.ColumnText(0), err)
				}
				records = append(records, Record{
					ID:         stmt.ColumnText(0),
					UserID:     stmt.ColumnText(1),
					Outcome:    Outcome(stmt.ColumnText(2)),
					Timestamp:  timestamp,
					Reason:     stmt.ColumnText(4),
					Distance:   columnFloat(stmt, 5),
					Threshold:  columnFloat(stmt, 6),
					Confidence: columnFloat(stmt, 7),
					Window:     stmt.ColumnText(8),
				})
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the underlying pool.
func (s *SQLiteSink) Close() error {
	return s.pool.Close()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func columnFloat(stmt *sqlite.Stmt, column int) *float64 {
	if stmt.ColumnIsNull(column) {
		return nil
	}
	return Float(stmt.ColumnFloat(column))
}
