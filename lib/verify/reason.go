// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

// Reason classifies a decision.
type Reason string

const (
	ReasonInvalidUserID         Reason = "INVALID_USER_ID"
	ReasonInvalidLiveDescriptor Reason = "INVALID_LIVE_DESCRIPTOR"
	ReasonNotEnrolled           Reason = "IDENTITY_NOT_ENROLLED"
	ReasonMatch                 Reason = "MATCH"
	ReasonMismatch              Reason = "MISMATCH"
	ReasonMaxAttempts           Reason = "MAX_ATTEMPTS_REACHED"
	ReasonUnauthorizedWindow    Reason = "UNAUTHORIZED_WINDOW"
	ReasonVerifyError           Reason = "VERIFY_ERROR"
)

// Valid reports whether r is one of the defined reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonInvalidUserID, ReasonInvalidLiveDescriptor, ReasonNotEnrolled,
		ReasonMatch, ReasonMismatch, ReasonMaxAttempts,
		ReasonUnauthorizedWindow, ReasonVerifyError:
		return true
	}
	return false
}

// Message is the caller-facing error text for a denial reason. MATCH
// and MISMATCH have none: they are decisions, not errors.
func (r Reason) Message() string {
	switch r {
	case ReasonInvalidUserID:
		return "Invalid userId."
	case ReasonInvalidLiveDescriptor:
		return "Live descriptor must be a 128D numeric vector."
	case ReasonNotEnrolled:
		return "No valid enrolled identity found for this user."
	case ReasonMaxAttempts:
		return "Maximum authentication attempts reached."
	case ReasonUnauthorizedWindow:
		return "No active authenticated window found."
	case ReasonVerifyError:
		return "Failed to verify identity."
	}
	return ""
}
