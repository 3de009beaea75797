// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// facegate-service is the facegate daemon. It loads the YAML
// configuration, opens the configured identity store and audit sink,
// and serves the faceauth operations on a CBOR Unix socket and,
// when http.address is set, as JSON over HTTP.
//
// Socket actions: enroll-identity, verify-identity, log-auth-attempt,
// lock-system, set-privileged-mode, close-window, status. Every
// operation replies ok=true with its response struct; ok=false means
// the request itself could not be decoded.
//
// The kiosk controller is [gate.LogKiosk]: the daemon records and
// logs mode changes. A host that can lock a display wires its own
// controller in place of it.
package main
