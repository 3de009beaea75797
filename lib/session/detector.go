// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"

	"github.com/bureau-foundation/facegate/lib/verify"
)

var (
	// ErrCameraUnavailable is returned by Detector.Load when there is
	// no camera to open.
	ErrCameraUnavailable = errors.New("session: no camera device found")

	// ErrPermissionDenied is returned by Detector.Load when the camera
	// exists but access was refused.
	ErrPermissionDenied = errors.New("session: camera permission denied")
)

// Face is one face found in a frame.
type Face struct {
	Descriptor []float64
}

// Detector captures frames and extracts face descriptors.
type Detector interface {
	// Load prepares models and opens the camera. It may be called
	// again after a failure.
	Load(ctx context.Context) error

	// Detect captures one frame and returns every face in it.
	Detect(ctx context.Context) ([]Face, error)

	// Close releases the camera. Called at most once per Scanner or
	// Enroller.
	Close() error
}

// Verifier asks for a decision. An error means no decision was made
// (for example, the daemon was unreachable).
type Verifier interface {
	Verify(ctx context.Context, userID string, live []float64) (verify.Decision, error)
}

// Locker performs the system lock when a session runs out of
// attempts.
type Locker interface {
	LockSystem(ctx context.Context, userID string, reason verify.Reason) error
}

// loadFailure maps a Detector.Load error to a failed attempt.
func loadFailure(err error) Failed {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return Failed{Cause: CausePermissionDenied}
	case errors.Is(err, ErrCameraUnavailable):
		return Failed{Cause: CauseCameraUnavailable}
	}
	return Failed{Cause: CauseCameraUnavailable, Detail: err.Error()}
}
