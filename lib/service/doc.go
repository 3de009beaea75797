// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service holds the transport plumbing of the facegate daemon.
//
// [SocketServer] serves a CBOR request/response protocol on a Unix
// socket, one request per connection. A request is a CBOR map with an
// "action" field and action-specific fields; the reply is a [Response]
// envelope {ok, error, data}. Handlers registered with
// [SocketServer.Handle] receive the raw request bytes and decode the
// fields they need. [ServiceClient] is the matching client used by
// the facegate CLI.
//
// [HTTPServer] owns the lifecycle of a TCP listener for the optional
// JSON surface. Routing lives with the caller.
//
// Both servers block in Serve until their context is cancelled and
// drain in-flight requests before returning.
//
// The socket has no caller authentication of its own. Access is
// controlled by the socket file's permissions (0660).
package service
