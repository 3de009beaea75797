// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package faceauth is the request/response boundary of facegate. Each
// [Core] method is one operation a front end can call, and each
// returns a well-formed response struct: errors cross the boundary
// only as the Error string.
//
// Core ties the decision service to the authorization gate. A match
// grants the requesting window; anything else revokes it. Privileged
// mode is entered only through [Core.SetPrivilegedMode] (or
// automatically after a match when ElevateOnMatch is set), and only
// for an authenticated window. [Core.LockSystem] always revokes and
// drops privileged mode before it tries to write the lockout record.
//
// The response types carry both json and cbor tags; the daemon serves
// them over HTTP and over its Unix socket. [Core.RegisterActions]
// installs the socket action table.
package faceauth
