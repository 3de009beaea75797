// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"math"

	"github.com/bureau-foundation/facegate/lib/verify"
)

// MaxAttempts is the number of failed attempts that locks a session.
const MaxAttempts = 3

// Phase is where a session is in the login flow.
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseScanning Phase = "scanning"
	PhaseMatching Phase = "matching"
	PhaseSuccess  Phase = "success"
	PhaseFailure  Phase = "failure"
	PhaseLocked   Phase = "locked"
)

// Terminal reports whether no event can leave p.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseLocked
}

// Cause says why an attempt failed.
type Cause string

const (
	CauseNoFace            Cause = "no_face"
	CauseMultipleFaces     Cause = "multiple_faces"
	CauseMismatch          Cause = "mismatch"
	CauseNotEnrolled       Cause = "not_enrolled"
	CauseCameraUnavailable Cause = "camera_unavailable"
	CausePermissionDenied  Cause = "permission_denied"
	CauseVerifyError       Cause = "verify_error"
	CauseInvalidDescriptor Cause = "invalid_descriptor"
)

// State is the observable state of one login session.
type State struct {
	Phase    Phase
	Attempts int
	Message  string

	// Cause is the most recent failure cause, empty before the
	// first failure.
	Cause Cause

	// Distance and Confidence come from the latest decision that
	// computed a distance.
	Distance   *float64
	Confidence *float64
}

// Initial is the state of a session that has not loaded yet.
func Initial() State {
	return State{Phase: PhaseLoading, Message: "Initializing face authentication..."}
}

// Event is an input to Next.
type Event interface {
	event()
}

// Ready means models are loaded and the camera is running.
type Ready struct{}

// ScanStarted means a capture cycle began.
type ScanStarted struct{}

// FaceMatched means exactly one face was found and its descriptor is
// going to verification.
type FaceMatched struct{}

// Verified carries the decision for the captured face.
type Verified struct {
	Decision verify.Decision
}

// Failed is an attempt that ended before or outside a decision.
type Failed struct {
	Cause  Cause
	Detail string
}

func (Ready) event()       {}
func (ScanStarted) event() {}
func (FaceMatched) event() {}
func (Verified) event()    {}
func (Failed) event()      {}

// Next returns the state after event. Events that do not apply to the
// current phase leave the state unchanged, and terminal states never
// change.
func Next(state State, event Event) State {
	if state.Phase.Terminal() {
		return state
	}

	switch e := event.(type) {
	case Ready:
		if state.Phase == PhaseLoading || state.Phase == PhaseFailure {
			state.Phase = PhaseScanning
			state.Message = "Camera ready. Start scanning..."
		}
	case ScanStarted:
		if state.Phase == PhaseScanning || state.Phase == PhaseFailure {
			state.Phase = PhaseScanning
			state.Message = "Scanning face..."
		}
	case FaceMatched:
		if state.Phase == PhaseScanning {
			state.Phase = PhaseMatching
			state.Message = "Matching face identity..."
		}
	case Verified:
		if state.Phase != PhaseMatching {
			return state
		}
		if e.Decision.Evaluated() {
			state.Distance = e.Decision.Distance
			state.Confidence = e.Decision.Confidence
		}
		if e.Decision.Allowed {
			state.Phase = PhaseSuccess
			state.Message = "Authentication successful."
			return state
		}
		return fail(state, decisionFailure(e.Decision))
	case Failed:
		return fail(state, e)
	}
	return state
}

func fail(state State, failure Failed) State {
	state.Attempts++
	state.Cause = failure.Cause
	if state.Attempts >= MaxAttempts {
		state.Phase = PhaseLocked
		state.Message = LockedMessage
		return state
	}
	state.Phase = PhaseFailure
	state.Message = Message(failure.Cause, failure.Detail)
	return state
}

// decisionFailure maps a denial to a failure cause. A mismatch carries
// the formatted distance as its detail.
func decisionFailure(decision verify.Decision) Failed {
	switch decision.Reason {
	case verify.ReasonMismatch:
		return Failed{Cause: CauseMismatch, Detail: formatDistance(decision.Distance)}
	case verify.ReasonNotEnrolled:
		return Failed{Cause: CauseNotEnrolled}
	case verify.ReasonInvalidLiveDescriptor:
		return Failed{Cause: CauseInvalidDescriptor}
	}
	return Failed{Cause: CauseVerifyError, Detail: decision.Reason.Message()}
}

func formatDistance(distance *float64) string {
	if distance == nil || math.IsNaN(*distance) || math.IsInf(*distance, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", *distance)
}

// LockedMessage is shown once a session locks.
const LockedMessage = "Maximum authentication attempts reached. System is locked."

// Message is the user-facing text for a failure. Detail is the
// formatted distance for CauseMismatch, and replaces the generic text
// for CauseVerifyError and CauseCameraUnavailable when set.
func Message(cause Cause, detail string) string {
	switch cause {
	case CauseNoFace:
		return "No face detected. Please align your face with the camera."
	case CauseMultipleFaces:
		return "Multiple faces detected. Only one face is allowed."
	case CauseMismatch:
		if detail == "" {
			detail = "N/A"
		}
		return fmt.Sprintf("Face mismatch. Distance %s exceeded threshold.", detail)
	case CauseNotEnrolled:
		return verify.ReasonNotEnrolled.Message()
	case CauseInvalidDescriptor:
		return verify.ReasonInvalidLiveDescriptor.Message()
	case CausePermissionDenied:
		return "Camera permission denied. Please allow camera access and retry."
	case CauseCameraUnavailable:
		if detail != "" {
			return detail
		}
		return "No camera device found on this system."
	case CauseVerifyError:
		if detail != "" {
			return detail
		}
		return "Unable to verify identity."
	}
	return "Unable to initialize face login."
}
