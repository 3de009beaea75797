// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/descriptor"
)

// fileDatabase is the on-disk document. The field names match the
// files written by the desktop application, so existing enrollments
// load unchanged.
type fileDatabase struct {
	Records []fileRecord `json:"records"`
}

type fileRecord struct {
	UserID     string    `json:"user_id"`
	Descriptor []float64 `json:"descriptor"`
	CreatedAt  string    `json:"created_at"`
	UpdatedAt  string    `json:"updated_at"`
}

// FileConfig configures NewFileStore.
type FileConfig struct {
	Path   string
	Clock  clock.Clock
	Logger *slog.Logger
}

// FileStore keeps every record in one JSON file.
//
// A missing, unreadable, or unparseable file reads as an empty
// database for Load. Save only starts a new database when the file is
// missing; it refuses to overwrite a file it cannot parse, so a
// damaged database is left for an operator to repair. Comments and
// trailing commas are accepted, so the file can be edited by hand.
type FileStore struct {
	path   string
	clock  clock.Clock
	logger *slog.Logger

	// mu serializes read-modify-write within this process.
	mu sync.Mutex
}

// NewFileStore returns a store for cfg.Path. The file is created on
// the first Save.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("identity: file store path is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{path: cfg.Path, clock: cfg.Clock, logger: cfg.Logger}, nil
}

func (s *FileStore) Load(ctx context.Context, userID string) (Record, error) {
	s.mu.Lock()
	database := s.read()
	s.mu.Unlock()

	for _, stored := range database.Records {
		if stored.UserID == userID {
			return Record{
				UserID:     stored.UserID,
				Descriptor: descriptor.Clone(stored.Descriptor),
				CreatedAt:  parseTimestamp(stored.CreatedAt),
				UpdatedAt:  parseTimestamp(stored.UpdatedAt),
			}, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *FileStore) Save(ctx context.Context, userID string, values []float64) error {
	now := s.clock.Now().UTC().Format(time.RFC3339Nano)

	s.mu.Lock()
	defer s.mu.Unlock()

	database, err := s.readForUpdate()
	if err != nil {
		return err
	}
	replaced := false
	for i := range database.Records {
		if database.Records[i].UserID == userID {
			database.Records[i].Descriptor = descriptor.Clone(values)
			database.Records[i].UpdatedAt = now
			replaced = true
			break
		}
	}
	if !replaced {
		database.Records = append(database.Records, fileRecord{
			UserID:     userID,
			Descriptor: descriptor.Clone(values),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return s.write(database)
}

// read returns the current database, or an empty one if the file is
// missing or damaged.
func (s *FileStore) read() fileDatabase {
	database, err := s.readForUpdate()
	if err != nil {
		s.logger.Warn("identity file unusable, treating as empty", "path", s.path, "error", err)
		return fileDatabase{}
	}
	return database
}

// readForUpdate returns the current database. Only a missing file
// reads as empty.
func (s *FileStore) readForUpdate() (fileDatabase, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileDatabase{}, nil
		}
		return fileDatabase{}, fmt.Errorf("identity: reading %s: %w", s.path, err)
	}
	var database fileDatabase
	if err := json.Unmarshal(jsonc.ToJSON(data), &database); err != nil {
		return fileDatabase{}, fmt.Errorf("identity: parsing %s: %w", s.path, err)
	}
	return database, nil
}

// write replaces the file atomically: temporary file, fsync, rename,
// then fsync of the directory so the rename survives power loss.
func (s *FileStore) write(database fileDatabase) error {
	if database.Records == nil {
		database.Records = []fileRecord{}
	}
	data, err := json.MarshalIndent(database, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: encoding database: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(s.path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("identity: creating %s: %w", directory, err)
	}

	temporaryPath := s.path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("identity: creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("identity: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("identity: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("identity: closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("identity: renaming into place: %w", err)
	}

	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// parseTimestamp accepts the ISO-8601 strings both facegate and the
// desktop application write. Unparseable values become the zero time.
func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
