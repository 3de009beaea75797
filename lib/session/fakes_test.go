// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/facegate/lib/testutil"
	"github.com/bureau-foundation/facegate/lib/verify"
)

// scriptedDetector replays load errors and frames in order. Once the
// frames run out every Detect returns no faces.
type scriptedDetector struct {
	mu       sync.Mutex
	loadErrs []error
	frames   [][]Face
	loads    int
	detects  int
	closes   int
}

func (d *scriptedDetector) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loads++
	if len(d.loadErrs) == 0 {
		return nil
	}
	err := d.loadErrs[0]
	d.loadErrs = d.loadErrs[1:]
	return err
}

func (d *scriptedDetector) Detect(ctx context.Context) ([]Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detects++
	if len(d.frames) == 0 {
		return nil, nil
	}
	frame := d.frames[0]
	d.frames = d.frames[1:]
	return frame, nil
}

func (d *scriptedDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *scriptedDetector) counts() (loads, detects, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loads, d.detects, d.closes
}

func oneFace(seed int) []Face {
	return []Face{{Descriptor: testutil.Descriptor(seed)}}
}

func twoFaces() []Face {
	return []Face{{Descriptor: testutil.Descriptor(1)}, {Descriptor: testutil.Descriptor(2)}}
}

// verifierFunc adapts a function to Verifier.
type verifierFunc func(ctx context.Context, userID string, live []float64) (verify.Decision, error)

func (f verifierFunc) Verify(ctx context.Context, userID string, live []float64) (verify.Decision, error) {
	return f(ctx, userID, live)
}

func allow() verifierFunc {
	return func(context.Context, string, []float64) (verify.Decision, error) {
		d, c := 0.1, 0.7777
		return verify.Decision{Allowed: true, Reason: verify.ReasonMatch, Distance: &d, Confidence: &c}, nil
	}
}

func mismatch() verifierFunc {
	return func(context.Context, string, []float64) (verify.Decision, error) {
		d, c := 0.6, 0.0
		return verify.Decision{Reason: verify.ReasonMismatch, Distance: &d, Confidence: &c}, nil
	}
}

type lockCall struct {
	userID   string
	reason   verify.Reason
	canceled bool
}

type recordingLocker struct {
	mu    sync.Mutex
	calls []lockCall
}

func (l *recordingLocker) LockSystem(ctx context.Context, userID string, reason verify.Reason) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, lockCall{userID: userID, reason: reason, canceled: ctx.Err() != nil})
	return nil
}

func (l *recordingLocker) recorded() []lockCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]lockCall(nil), l.calls...)
}

// messageHandler forwards log messages to a channel so tests can wait
// for a specific log line.
type messageHandler struct {
	messages chan string
}

func (h messageHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h messageHandler) Handle(_ context.Context, record slog.Record) error {
	select {
	case h.messages <- record.Message:
	default:
	}
	return nil
}

func (h messageHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h messageHandler) WithGroup(string) slog.Handler      { return h }
