// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity persists enrolled face descriptors, one per user.
//
// [Store] is the whole contract: Load a user's record or get
// [ErrNotFound]; Save a descriptor, creating the record or replacing
// the previous descriptor. Saves are last-write-wins and keep the
// original CreatedAt. A record is never half-updated.
//
// Backends:
//
//   - [Memory]: a map, for tests and development.
//   - [SQLiteStore]: a face_descriptors table with CBOR descriptor
//     blobs, on lib/sqlitepool.
//   - [FileStore]: the single JSON document the desktop application
//     used, {"records": [...]}, replaced atomically on every save.
//   - [MongoStore]: a MongoDB collection keyed by user_id.
//
// Every backend copies descriptors on the way in and out.
//
// Stores do not validate descriptors. That is the job of lib/verify,
// which also treats a stored descriptor that fails validation as not
// enrolled.
package identity
