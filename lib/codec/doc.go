// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds facegate's single CBOR configuration.
//
// CBOR is used for the service socket protocol and for descriptor blobs
// in the SQLite identity store. JSON is used for the HTTP surface, the
// audit journal, and the JSON identity file.
//
// Encoding follows Core Deterministic Encoding (RFC 8949 §4.2), so the
// same descriptor always produces the same bytes. Floats keep their
// exact value: NaN and ±Inf survive the round trip, which matters
// because the descriptor validator must see them rather than a value
// the transport silently rewrote.
//
// Socket protocol types use `json` tags so one type serves both the
// CBOR socket and the JSON HTTP surface; fxamacker/cbor falls back to
// `json` tags when no `cbor` tag is present. Types that only ever
// travel as CBOR use `cbor` tags. Never put both on one field.
package codec
