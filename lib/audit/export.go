// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

// ExportJournal writes a zstd-compressed copy of the journal at path
// to w. The copy is taken under a shared lock, so it always ends on a
// complete line. It returns the number of uncompressed bytes copied.
func ExportJournal(path string, w io.Writer) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audit: opening journal: %w", err)
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_SH); err != nil {
		return 0, fmt.Errorf("audit: locking journal: %w", err)
	}
	defer unix.Flock(int(file.Fd()), unix.LOCK_UN)

	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, fmt.Errorf("audit: creating zstd encoder: %w", err)
	}
	written, err := io.Copy(encoder, file)
	if err != nil {
		encoder.Close()
		return written, fmt.Errorf("audit: compressing journal: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return written, fmt.Errorf("audit: finishing zstd stream: %w", err)
	}
	return written, nil
}

// OpenExport returns a reader over the decompressed journal in an
// export produced by ExportJournal.
func OpenExport(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("audit: opening zstd stream: %w", err)
	}
	return decoder.IOReadCloser(), nil
}
