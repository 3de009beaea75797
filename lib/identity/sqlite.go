// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/codec"
	"github.com/bureau-foundation/facegate/lib/sqlitepool"
)

const descriptorsSchema = `
	CREATE TABLE IF NOT EXISTS face_descriptors (
		user_id    TEXT PRIMARY KEY,
		descriptor BLOB NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
`

const timestampLayout = time.RFC3339Nano

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path   string
	Clock  clock.Clock
	Logger *slog.Logger
}

// SQLiteStore keeps descriptors as CBOR blobs in a SQLite table.
type SQLiteStore struct {
	pool  *sqlitepool.Pool
	clock clock.Clock
}

// OpenSQLite opens or creates the database at cfg.Path.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:    cfg.Path,
		Schema:  descriptorsSchema,
		Durable: true,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	return &SQLiteStore{pool: pool, clock: cfg.Clock}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (Record, error) {
	record := Record{UserID: userID}
	found := false

	err := s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT descriptor, created_at, updated_at FROM face_descriptors WHERE user_id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{userID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found = true
					blob := make([]byte, stmt.ColumnLen(0))
					stmt.ColumnBytes(0, blob)
					if err := codec.Unmarshal(blob, &record.Descriptor); err != nil {
						return fmt.Errorf("identity: decoding descriptor for %q: %w", userID, err)
					}
					var err error
					if record.CreatedAt, err = time.Parse(timestampLayout, stmt.ColumnText(1)); err != nil {
						return fmt.Errorf("identity: parsing created_at for %q: %w", userID, err)
					}
					if record.UpdatedAt, err = time.Parse(timestampLayout, stmt.ColumnText(2)); err != nil {
						return fmt.Errorf("identity: parsing updated_at for %q: %w", userID, err)
					}
					return nil
				},
			})
	})
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, ErrNotFound
	}
	return record, nil
}

// Save upserts the descriptor. ON CONFLICT leaves created_at alone.
func (s *SQLiteStore) Save(ctx context.Context, userID string, values []float64) error {
	blob, err := codec.Marshal(values)
	if err != nil {
		return fmt.Errorf("identity: encoding descriptor: %w", err)
	}
	now := s.clock.Now().UTC().Format(timestampLayout)

	return s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO face_descriptors (user_id, descriptor, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				descriptor = excluded.descriptor,
				updated_at = excluded.updated_at`,
			&sqlitex.ExecOptions{Args: []any{userID, blob, now, now}})
		if err != nil {
			return fmt.Errorf("identity: saving %q: %w", userID, err)
		}
		return nil
	})
}

// Close closes the underlying pool.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
