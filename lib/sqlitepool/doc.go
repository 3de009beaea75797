// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite databases behind facegate's
// identity store and audit sink.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, do their work, and [Pool.Put] it back, or use [Pool.Do]
// which handles both. A connection belongs to one goroutine at a time.
//
// Every connection gets WAL journaling, a busy timeout, and the
// caller's schema. Identity records and audit rows are the source of
// truth for authentication, so [Config.Durable] switches synchronous to
// FULL and a committed enrollment survives power loss as well as a
// process crash.
package sqlitepool
