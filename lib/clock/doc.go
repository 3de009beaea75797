// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for facegate components.
//
// Anything that schedules work (the scan cadence in lib/session, the
// timestamps on identity and audit records) takes a [Clock] instead of
// calling the time package. Production code passes [Real]. Tests pass
// [Fake] and move time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
//	scanner := session.NewScanner(session.ScannerConfig{Clock: fake, ...})
//	scanner.Start(ctx)
//	fake.WaitForTimers(1)               // ticker registered
//	fake.Advance(600 * time.Millisecond) // one scan cycle
//
// WaitForTimers closes the race between a goroutine registering a ticker
// and the test advancing past it, so tests never sleep on the wall clock.
package clock
