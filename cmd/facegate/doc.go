// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command facegate talks to a running facegate-service over its
// socket, and inspects audit journals on disk.
//
// One-shot commands (enroll, verify, lock, kiosk, log, close, status)
// map directly onto daemon actions. The scan and register commands run
// the login and enrollment loops locally, reading face frames from a
// JSONL file and sending decisions and enrollments to the daemon:
//
//	facegate register alice --frames enroll.jsonl
//	facegate scan alice --frames login.jsonl --window desk-3
//
// The audit commands operate on journal files directly and do not need
// the daemon.
package main
