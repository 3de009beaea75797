// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records authentication attempts.
//
// Every verification, explicit attempt log, and lockout produces one
// [Record] appended to a [Sink]. Records are write-once: sinks only
// append, and nothing in facegate reads a record back to change it.
//
// Three sinks are provided:
//
//   - [Memory] keeps records in a slice, for tests and throwaway
//     development daemons.
//   - [Journal] appends JSON lines to a file. Each line carries the
//     BLAKE3 hash of the previous line and of itself, so [VerifyChain]
//     can detect an edited, reordered, or truncated-in-the-middle
//     journal. Writers serialize on an advisory flock, which keeps the
//     chain intact when the daemon and the CLI both append.
//     [ExportJournal] writes a zstd-compressed copy for archival.
//   - [SQLiteSink] inserts rows into an auth_attempts table and can
//     list recent attempts.
//
// Sinks assign the record ID (a ULID) and the timestamp when the
// caller leaves them empty.
package audit
