// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package faceauth

import (
	"time"

	"github.com/bureau-foundation/facegate/lib/verify"
)

// EnrollResponse is the result of EnrollIdentity.
type EnrollResponse struct {
	Success bool   `json:"success" cbor:"success"`
	Message string `json:"message,omitempty" cbor:"message,omitempty"`
	Error   string `json:"error,omitempty" cbor:"error,omitempty"`
}

// VerifyResponse is the result of VerifyIdentity.
//
// Success reports that a decision was computed against an enrolled
// descriptor; Allow is the decision itself. A request rejected before
// comparison has Success false and an Error message. Distance,
// Threshold, and Confidence are present only when Success is true.
type VerifyResponse struct {
	Success    bool     `json:"success" cbor:"success"`
	Allow      bool     `json:"allow" cbor:"allow"`
	Reason     string   `json:"reason,omitempty" cbor:"reason,omitempty"`
	Distance   *float64 `json:"distance,omitempty" cbor:"distance,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty" cbor:"threshold,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" cbor:"confidence,omitempty"`
	Error      string   `json:"error,omitempty" cbor:"error,omitempty"`
}

// Decision converts the response back into a verify.Decision, for
// callers on the far side of a transport.
func (r VerifyResponse) Decision() verify.Decision {
	decision := verify.Decision{
		Allowed:    r.Allow,
		Reason:     verify.Reason(r.Reason),
		Distance:   r.Distance,
		Confidence: r.Confidence,
	}
	if r.Threshold != nil {
		decision.Threshold = *r.Threshold
	}
	return decision
}

// Result is the response of operations with no payload.
type Result struct {
	Success bool   `json:"success" cbor:"success"`
	Error   string `json:"error,omitempty" cbor:"error,omitempty"`
}

// AttemptRequest is an externally reported authentication attempt.
type AttemptRequest struct {
	UserID     string   `json:"userId" cbor:"userId"`
	Outcome    string   `json:"outcome" cbor:"outcome"`
	Reason     string   `json:"reason,omitempty" cbor:"reason,omitempty"`
	Distance   *float64 `json:"distance,omitempty" cbor:"distance,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty" cbor:"threshold,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" cbor:"confidence,omitempty"`
	Window     string   `json:"window,omitempty" cbor:"window,omitempty"`
}

// StatusResponse describes the gate and the fixed policy.
type StatusResponse struct {
	AuthenticatedWindows int     `json:"authenticated_windows" cbor:"authenticated_windows"`
	PrivilegedWindows    int     `json:"privileged_windows" cbor:"privileged_windows"`
	Threshold            float64 `json:"threshold" cbor:"threshold"`
	MaxAttempts          int     `json:"max_attempts" cbor:"max_attempts"`
	DescriptorLength     int     `json:"descriptor_length" cbor:"descriptor_length"`
	ElevateOnMatch       bool    `json:"elevate_on_match" cbor:"elevate_on_match"`

	// Window is set when the status request named a window.
	Window *WindowStatus `json:"window,omitempty" cbor:"window,omitempty"`
}

// WindowStatus is the gate's view of one window.
type WindowStatus struct {
	Window          string     `json:"window" cbor:"window"`
	Authenticated   bool       `json:"authenticated" cbor:"authenticated"`
	Privileged      bool       `json:"privileged" cbor:"privileged"`
	AuthenticatedAt *time.Time `json:"authenticated_at,omitempty" cbor:"authenticated_at,omitempty"`
}
