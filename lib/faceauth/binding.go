// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package faceauth

import (
	"context"
	"errors"

	"github.com/bureau-foundation/facegate/lib/verify"
)

// Binding runs a session.Scanner in-process against a Core, on behalf
// of one window. It implements session.Verifier and session.Locker.
type Binding struct {
	core   *Core
	window string
}

// Bind returns a Binding for window.
func (c *Core) Bind(window string) *Binding {
	return &Binding{core: c, window: window}
}

// Verify calls VerifyIdentity. A VERIFY_ERROR response becomes an
// error; every other response is a decision.
func (b *Binding) Verify(ctx context.Context, userID string, live []float64) (verify.Decision, error) {
	response := b.core.VerifyIdentity(ctx, b.window, userID, live)
	if response.Reason == string(verify.ReasonVerifyError) {
		return verify.Decision{}, errors.New(response.Error)
	}
	return response.Decision(), nil
}

// LockSystem calls Core.LockSystem for the bound window.
func (b *Binding) LockSystem(ctx context.Context, userID string, reason verify.Reason) error {
	result := b.core.LockSystem(ctx, b.window, userID, string(reason))
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}
