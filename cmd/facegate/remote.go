// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	"github.com/bureau-foundation/facegate/lib/faceauth"
	"github.com/bureau-foundation/facegate/lib/service"
	"github.com/bureau-foundation/facegate/lib/verify"
)

// remote implements session.Verifier and session.Locker over the
// daemon socket for one window.
type remote struct {
	client *service.ServiceClient
	window string
}

// Verify calls verify-identity. Transport failures and VERIFY_ERROR
// responses are errors; every other response is a decision.
func (r *remote) Verify(ctx context.Context, userID string, live []float64) (verify.Decision, error) {
	var response faceauth.VerifyResponse
	err := r.client.Call(ctx, "verify-identity", map[string]any{
		"window":     r.window,
		"userId":     userID,
		"descriptor": live,
	}, &response)
	if err != nil {
		return verify.Decision{}, err
	}
	if response.Reason == string(verify.ReasonVerifyError) {
		return verify.Decision{}, errors.New(response.Error)
	}
	return response.Decision(), nil
}

// LockSystem calls lock-system for the window.
func (r *remote) LockSystem(ctx context.Context, userID string, reason verify.Reason) error {
	var result faceauth.Result
	err := r.client.Call(ctx, "lock-system", map[string]any{
		"window": r.window,
		"userId": userID,
		"reason": string(reason),
	}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}

// Enroll calls enroll-identity. It has the shape of session.EnrollFunc.
func (r *remote) Enroll(ctx context.Context, userID string, descriptor []float64) error {
	var response faceauth.EnrollResponse
	err := r.client.Call(ctx, "enroll-identity", map[string]any{
		"userId":     userID,
		"descriptor": descriptor,
	}, &response)
	if err != nil {
		return err
	}
	if !response.Success {
		return errors.New(response.Error)
	}
	return nil
}
