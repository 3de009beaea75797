// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session drives a face login from the caller's side: it
// captures frames on a fixed cadence, asks for a decision, counts
// failures, and locks the system after [MaxAttempts].
//
// The rules live in [Next], a pure reducer over [State] and [Event].
// [Scanner] runs the reducer against a real [Detector] and [Verifier]:
// one cycle per tick, never two at once, and a single
// [Locker.LockSystem] call when the session locks. [Enroller] is the
// registration counterpart: it waits for a run of stable single-face
// frames and then enrolls the last one.
//
// Attempts only reset when a new Scanner is created. Success and
// Locked are terminal.
package session
