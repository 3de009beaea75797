// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/facegate/lib/clock"
)

// JournalConfig configures OpenJournal.
type JournalConfig struct {
	// Path is the JSONL file. Its directory is created if missing.
	Path string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Journal is a hash-chained, append-only JSONL Sink.
type Journal struct {
	path   string
	clock  clock.Clock
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File

	// knownSize and lastHash describe the file as of this Journal's
	// last write. A different size on the next append means another
	// writer got in first and the tail must be re-read.
	knownSize int64
	lastHash  string
}

// OpenJournal opens or creates the journal at cfg.Path.
func OpenJournal(cfg JournalConfig) (*Journal, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit: journal path is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: creating journal directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: opening journal: %w", err)
	}

	journal := &Journal{
		path:      cfg.Path,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		file:      file,
		knownSize: -1,
	}
	cfg.Logger.Info("audit journal opened", "path", cfg.Path)
	return journal, nil
}

// Append seals record onto the end of the chain and syncs it to disk.
func (j *Journal) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	stamp(&record, j.clock)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return fmt.Errorf("audit: journal %s is closed", j.path)
	}

	fd := int(j.file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return fmt.Errorf("audit: locking journal: %w", err)
	}
	defer unix.Flock(fd, unix.LOCK_UN)

	info, err := j.file.Stat()
	if err != nil {
		return fmt.Errorf("audit: stat journal: %w", err)
	}
	if info.Size() != j.knownSize {
		previous, err := lastHash(io.NewSectionReader(j.file, 0, info.Size()))
		if err != nil {
			return err
		}
		j.lastHash = previous
		j.knownSize = info.Size()
	}

	line, err := seal(&record, j.lastHash)
	if err != nil {
		return err
	}
	if len(line) > maxLineSize {
		return fmt.Errorf("%w: encoded record is %d bytes, limit %d", ErrInvalidRecord, len(line), maxLineSize)
	}
	if _, err := j.file.Write(line); err != nil {
		// The size no longer matches, so the next append re-reads
		// the tail instead of trusting lastHash.
		j.knownSize = -1
		return fmt.Errorf("audit: writing journal: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		j.knownSize = -1
		return fmt.Errorf("audit: syncing journal: %w", err)
	}

	j.lastHash = record.Hash
	j.knownSize += int64(len(line))
	j.logger.Debug("audit record appended",
		"id", record.ID,
		"user_id", record.UserID,
		"outcome", record.Outcome,
		"reason", record.Reason,
	)
	return nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close releases the file. Append after Close returns an error.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// VerifyJournal checks the chain of the journal at path under a shared
// lock, so a concurrent writer cannot leave a half-written line in view.
func VerifyJournal(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audit: opening journal: %w", err)
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_SH); err != nil {
		return 0, fmt.Errorf("audit: locking journal: %w", err)
	}
	defer unix.Flock(int(file.Fd()), unix.LOCK_UN)

	return VerifyChain(file)
}
