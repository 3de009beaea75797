// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package descriptor validates face embeddings and compares them.
//
// A descriptor is a 128-dimension vector produced by the face
// recognition model. Live descriptors arrive from untrusted callers, so
// [Validate] rejects anything of the wrong length or containing NaN or
// ±Inf before any arithmetic happens.
//
// [Distance] is the Euclidean distance between two descriptors, and a
// pair matches when the distance is at most [Threshold]. [Confidence]
// maps a distance onto [0, 1] for display; it never feeds a decision.
package descriptor
