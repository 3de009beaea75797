// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package faceauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/facegate/lib/audit"
	"github.com/bureau-foundation/facegate/lib/descriptor"
	"github.com/bureau-foundation/facegate/lib/gate"
	"github.com/bureau-foundation/facegate/lib/session"
	"github.com/bureau-foundation/facegate/lib/verify"
)

// Messages returned in Error fields.
const (
	msgInvalidUserID        = "Invalid userId."
	msgInvalidDescriptor    = "Descriptor must be a 128D numeric vector."
	msgEnrollFailed         = "Failed to save face descriptor."
	msgEnrolled             = "Identity enrolled successfully."
	msgInvalidPayload       = "Invalid auth log payload."
	msgInvalidOutcome       = "Invalid auth outcome."
	msgNoWindow             = "No active window found."
	msgRequiresAuth         = "Kiosk mode requires successful authentication."
	msgLockAuditFailed      = "Failed to record lockout."
	msgAttemptAuditFailed   = "Failed to log auth attempt."
	msgPrivilegedModeFailed = "Failed to set kiosk mode."
)

// Config configures a Core.
type Config struct {
	Verifier *verify.Service
	Gate     *gate.Gate
	Sink     audit.Sink

	// ElevateOnMatch enters privileged mode right after a match.
	// Otherwise a match only authenticates the window.
	ElevateOnMatch bool

	Logger *slog.Logger
}

// Core implements the facegate operations.
type Core struct {
	verifier       *verify.Service
	gate           *gate.Gate
	sink           audit.Sink
	elevateOnMatch bool
	logger         *slog.Logger
}

// New returns a Core. Verifier, Gate, and Sink are required.
func New(cfg Config) (*Core, error) {
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("faceauth: verifier is required")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("faceauth: gate is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("faceauth: audit sink is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Core{
		verifier:       cfg.Verifier,
		gate:           cfg.Gate,
		sink:           cfg.Sink,
		elevateOnMatch: cfg.ElevateOnMatch,
		logger:         logger,
	}, nil
}

// EnrollIdentity stores descriptor as userID's identity, replacing any
// previous one.
func (c *Core) EnrollIdentity(ctx context.Context, userID string, values []float64) EnrollResponse {
	err := c.verifier.Enroll(ctx, userID, values)
	switch {
	case err == nil:
		return EnrollResponse{Success: true, Message: msgEnrolled}
	case errors.Is(err, verify.ErrInvalidUserID):
		return EnrollResponse{Error: msgInvalidUserID}
	case errors.Is(err, verify.ErrInvalidDescriptor):
		return EnrollResponse{Error: msgInvalidDescriptor}
	}
	return EnrollResponse{Error: msgEnrollFailed}
}

// VerifyIdentity decides whether live matches userID and updates the
// window's authorization to match the decision.
func (c *Core) VerifyIdentity(ctx context.Context, window, userID string, live []float64) VerifyResponse {
	if err := ctx.Err(); err != nil {
		decision := c.verifier.Reject(context.WithoutCancel(ctx), window, userID, verify.ReasonVerifyError)
		response := denied(decision)
		response.Error = err.Error()
		return response
	}
	if window == "" || len(window) > audit.MaxWindowLength {
		return denied(c.verifier.Reject(ctx, "", userID, verify.ReasonUnauthorizedWindow))
	}

	decision := c.verifier.VerifyWindow(ctx, window, userID, live)
	if !decision.Evaluated() {
		c.revoke(window)
		return denied(decision)
	}

	response := VerifyResponse{
		Success:    true,
		Allow:      decision.Allowed,
		Reason:     string(decision.Reason),
		Distance:   decision.Distance,
		Threshold:  audit.Float(decision.Threshold),
		Confidence: decision.Confidence,
	}
	if !decision.Allowed {
		c.revoke(window)
		return response
	}

	if err := c.gate.Grant(window); err != nil {
		response.Error = err.Error()
		return response
	}
	if c.elevateOnMatch {
		if err := c.gate.SetPrivilegedMode(window, true); err != nil {
			c.logger.Error("entering privileged mode after match failed", "window", window, "error", err)
			response.Error = err.Error()
		}
	}
	return response
}

// clip shortens s to at most limit bytes without splitting a rune.
func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

func denied(decision verify.Decision) VerifyResponse {
	return VerifyResponse{
		Reason: string(decision.Reason),
		Error:  decision.Reason.Message(),
	}
}

func (c *Core) revoke(window string) {
	if err := c.gate.Revoke(window); err != nil {
		c.logger.Error("revoking window failed", "window", window, "error", err)
	}
}

// LogAuthAttempt records an attempt reported by a front end.
func (c *Core) LogAuthAttempt(ctx context.Context, request AttemptRequest) Result {
	if strings.TrimSpace(request.UserID) == "" {
		return Result{Error: msgInvalidPayload}
	}
	outcome := audit.Outcome(request.Outcome)
	if !outcome.Valid() {
		return Result{Error: msgInvalidOutcome}
	}
	err := c.sink.Append(ctx, audit.Record{
		UserID:     request.UserID,
		Outcome:    outcome,
		Reason:     request.Reason,
		Distance:   request.Distance,
		Threshold:  request.Threshold,
		Confidence: request.Confidence,
		Window:     request.Window,
	})
	if errors.Is(err, audit.ErrInvalidRecord) {
		return Result{Error: err.Error()}
	}
	if err != nil {
		c.logger.Warn("audit append failed", "user_id", request.UserID, "error", err)
		return Result{Error: msgAttemptAuditFailed}
	}
	return Result{Success: true}
}

// LockSystem revokes window (every window when window is empty), takes
// it out of privileged mode, and records a lockout. The revocation
// happens before, and regardless of, the audit write.
func (c *Core) LockSystem(ctx context.Context, window, userID, reason string) Result {
	var lockErr error
	if window == "" {
		lockErr = c.gate.RevokeAll()
	} else {
		lockErr = c.gate.SetPrivilegedMode(window, false)
	}
	if lockErr != nil {
		c.logger.Error("system lock could not reach the kiosk controller", "window", window, "error", lockErr)
	}

	// The lockout record must always be writable, so caller text is
	// fitted to the audit limits rather than rejected.
	if strings.TrimSpace(userID) == "" || len(userID) > audit.MaxUserIDLength || !utf8.ValidString(userID) {
		userID = audit.UnknownUser
	}
	if reason == "" {
		reason = string(verify.ReasonMaxAttempts)
	}
	reason = clip(strings.ToValidUTF8(reason, "?"), audit.MaxReasonLength)
	recordWindow := window
	if len(recordWindow) > audit.MaxWindowLength || !utf8.ValidString(recordWindow) {
		recordWindow = ""
	}
	c.logger.Warn("system locked", "window", recordWindow, "user_id", userID, "reason", reason)

	auditErr := c.sink.Append(context.WithoutCancel(ctx), audit.Record{
		UserID:  userID,
		Outcome: audit.OutcomeLockout,
		Reason:  reason,
		Window:  recordWindow,
	})
	if auditErr != nil {
		c.logger.Error("lockout audit append failed", "user_id", userID, "error", auditErr)
	}

	switch {
	case lockErr != nil:
		return Result{Error: lockErr.Error()}
	case auditErr != nil:
		return Result{Error: msgLockAuditFailed}
	}
	return Result{Success: true}
}

// LockWindow is LockSystem restricted to a single window. Callers
// that cannot be trusted with every session, such as HTTP clients,
// use it so that a missing window is refused instead of locking all.
func (c *Core) LockWindow(ctx context.Context, window, userID, reason string) Result {
	if window == "" {
		return Result{Error: msgNoWindow}
	}
	return c.LockSystem(ctx, window, userID, reason)
}

// SetPrivilegedMode enables or disables privileged mode for window.
// Disabling always succeeds: the gate has already dropped the window,
// so a kiosk controller failure is logged rather than returned.
func (c *Core) SetPrivilegedMode(ctx context.Context, window string, enable bool) Result {
	err := c.gate.SetPrivilegedMode(window, enable)
	if !enable {
		if err != nil {
			c.logger.Error("kiosk controller failed while leaving privileged mode", "window", window, "error", err)
		}
		return Result{Success: true}
	}
	switch {
	case err == nil:
		return Result{Success: true}
	case errors.Is(err, gate.ErrRequiresAuthentication):
		return Result{Error: msgRequiresAuth}
	case errors.Is(err, gate.ErrNoWindow):
		return Result{Error: msgNoWindow}
	}
	c.logger.Error("privileged mode change failed", "window", window, "enable", enable, "error", err)
	return Result{Error: msgPrivilegedModeFailed}
}

// CloseWindow forgets a window that no longer exists.
func (c *Core) CloseWindow(ctx context.Context, window string) Result {
	if window == "" {
		return Result{Error: msgNoWindow}
	}
	if err := c.gate.CloseWindow(window); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true}
}

// Status reports gate counts and the fixed policy.
func (c *Core) Status() StatusResponse {
	authenticated, privileged := c.gate.Counts()
	return StatusResponse{
		AuthenticatedWindows: authenticated,
		PrivilegedWindows:    privileged,
		Threshold:            descriptor.Threshold,
		MaxAttempts:          session.MaxAttempts,
		DescriptorLength:     descriptor.Length,
		ElevateOnMatch:       c.elevateOnMatch,
	}
}

// WindowStatus reports whether window is authenticated, since when,
// and whether it is in privileged mode.
func (c *Core) WindowStatus(window string) *WindowStatus {
	status := &WindowStatus{Window: window, Privileged: c.gate.Privileged(window)}
	if since, ok := c.gate.AuthenticatedSince(window); ok {
		status.Authenticated = true
		status.AuthenticatedAt = &since
	}
	return status
}
