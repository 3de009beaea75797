// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by facegate's package tests.
//
// [RequireReceive], [RequireSend], and [RequireClosed] are the only
// place tests wait on the wall clock. Everything else that involves
// time runs on lib/clock's FakeClock; these helpers only keep a broken
// test from hanging forever.
//
// [SocketDir] returns a short directory under /tmp, since Unix socket
// paths are limited to 108 bytes and t.TempDir() can exceed that.
//
// [Descriptor] builds deterministic 128-dimension embeddings so tests
// can talk about "alice's face" without fixture files.
package testutil
