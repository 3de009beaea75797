// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate tracks which windows are currently authenticated and
// which are in privileged (kiosk) mode.
//
// Privileged mode can be entered only by a window that is in the
// authenticated set at the moment of the request. A single successful
// verification is not enough on its own: if the window was revoked in
// between, the request fails with [ErrRequiresAuthentication].
// Leaving privileged mode always succeeds and also revokes the window.
//
// A [Gate] is created once per process and passed to whoever needs
// it. All methods are safe for concurrent use; one mutex covers both
// the authenticated set and the privileged set, so grant, revoke, and
// mode changes on a window are atomic with respect to each other.
//
// The physical mode switch belongs to a [KioskController]. The gate
// calls it while holding its lock, so controllers must not call back
// into the gate.
package gate
