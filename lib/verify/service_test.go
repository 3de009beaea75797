// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/facegate/lib/audit"
	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/descriptor"
	"github.com/bureau-foundation/facegate/lib/identity"
	"github.com/bureau-foundation/facegate/lib/testutil"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// brokenStore fails every call.
type brokenStore struct{ err error }

func (b brokenStore) Load(context.Context, string) (identity.Record, error) {
	return identity.Record{}, b.err
}

func (b brokenStore) Save(context.Context, string, []float64) error { return b.err }

// rawStore returns whatever descriptor it holds, valid or not.
type rawStore struct{ values []float64 }

func (r rawStore) Load(_ context.Context, userID string) (identity.Record, error) {
	return identity.Record{UserID: userID, Descriptor: r.values}, nil
}

func (r rawStore) Save(context.Context, string, []float64) error { return nil }

type fixture struct {
	service *Service
	store   *identity.Memory
	sink    *audit.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fake := clock.Fake(testEpoch)
	store := identity.NewMemory(fake)
	sink := audit.NewMemory(fake)
	service, err := New(Config{Store: store, Sink: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fixture{service: service, store: store, sink: sink}
}

func (f fixture) enroll(t *testing.T, userID string, values []float64) {
	t.Helper()
	if err := f.service.Enroll(context.Background(), userID, values); err != nil {
		t.Fatalf("Enroll(%q): %v", userID, err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Sink: audit.NewMemory(nil)}); err == nil {
		t.Error("New without store succeeded")
	}
	if _, err := New(Config{Store: identity.NewMemory(nil)}); err == nil {
		t.Error("New without sink succeeded")
	}
}

func TestVerifyDecisions(t *testing.T) {
	enrolled := testutil.Zero()

	notFinite := testutil.Zero()
	notFinite[10] = math.NaN()

	for _, test := range []struct {
		name      string
		userID    string
		live      []float64
		allowed   bool
		reason    Reason
		evaluated bool
		outcome   audit.Outcome
		auditUser string
	}{
		{"identical", "alice", testutil.Zero(), true, ReasonMatch, true, audit.OutcomeSuccess, "alice"},
		{"close", "alice", testutil.Shifted(enrolled, 3, 0.3), true, ReasonMatch, true, audit.OutcomeSuccess, "alice"},
		{"far", "alice", testutil.Shifted(enrolled, 3, 0.6), false, ReasonMismatch, true, audit.OutcomeFailure, "alice"},
		{"empty user", "", testutil.Zero(), false, ReasonInvalidUserID, false, audit.OutcomeFailure, audit.UnknownUser},
		{"blank user", "   ", testutil.Zero(), false, ReasonInvalidUserID, false, audit.OutcomeFailure, audit.UnknownUser},
		{"oversized user", strings.Repeat("a", audit.MaxUserIDLength+1), testutil.Zero(), false, ReasonInvalidUserID, false, audit.OutcomeFailure, audit.UnknownUser},
		{"short descriptor", "alice", make([]float64, 127), false, ReasonInvalidLiveDescriptor, false, audit.OutcomeFailure, "alice"},
		{"nil descriptor", "alice", nil, false, ReasonInvalidLiveDescriptor, false, audit.OutcomeFailure, "alice"},
		{"NaN descriptor", "alice", notFinite, false, ReasonInvalidLiveDescriptor, false, audit.OutcomeFailure, "alice"},
		{"not enrolled", "bob", testutil.Zero(), false, ReasonNotEnrolled, false, audit.OutcomeFailure, "bob"},
	} {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			f.enroll(t, "alice", enrolled)

			decision := f.service.Verify(context.Background(), test.userID, test.live)
			if decision.Allowed != test.allowed || decision.Reason != test.reason {
				t.Fatalf("decision = %+v, want allowed=%v reason=%s", decision, test.allowed, test.reason)
			}
			if decision.Evaluated() != test.evaluated {
				t.Errorf("Evaluated = %v, want %v", decision.Evaluated(), test.evaluated)
			}
			if decision.Threshold != descriptor.Threshold {
				t.Errorf("Threshold = %v", decision.Threshold)
			}

			records := f.sink.Records()
			if len(records) != 1 {
				t.Fatalf("audit records = %d, want exactly 1", len(records))
			}
			record := records[0]
			if record.UserID != test.auditUser || record.Outcome != test.outcome || record.Reason != string(test.reason) {
				t.Errorf("audit record = %+v", record)
			}
			if (record.Distance != nil) != test.evaluated {
				t.Errorf("audit distance present = %v, want %v", record.Distance != nil, test.evaluated)
			}
		})
	}
}

func TestVerifyThresholdBoundary(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "alice", testutil.Zero())

	decision := f.service.Verify(context.Background(), "alice", testutil.Shifted(testutil.Zero(), 0, descriptor.Threshold))
	if !decision.Allowed || decision.Reason != ReasonMatch {
		t.Fatalf("distance exactly at threshold: %+v, want MATCH", decision)
	}
	if *decision.Distance != descriptor.Threshold {
		t.Errorf("Distance = %v", *decision.Distance)
	}
	if *decision.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 at threshold", *decision.Confidence)
	}
}

func TestVerifyWorkedExamples(t *testing.T) {
	for _, test := range []struct {
		name       string
		distance   float64
		allowed    bool
		reason     Reason
		confidence float64
	}{
		{"match at 0.30", 0.30, true, ReasonMatch, 1 - 0.30/0.45},
		{"mismatch at 0.50", 0.50, false, ReasonMismatch, 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			f.enroll(t, "alice", testutil.Zero())

			decision := f.service.Verify(context.Background(), "alice", testutil.Shifted(testutil.Zero(), 0, test.distance))
			if decision.Allowed != test.allowed || decision.Reason != test.reason {
				t.Fatalf("decision = %+v, want allowed=%v reason=%s", decision, test.allowed, test.reason)
			}
			if math.Abs(*decision.Distance-test.distance) > 1e-9 {
				t.Errorf("Distance = %v, want %v", *decision.Distance, test.distance)
			}
			if math.Abs(*decision.Confidence-test.confidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", *decision.Confidence, test.confidence)
			}

			record := f.sink.Records()[0]
			if math.Abs(*record.Confidence-test.confidence) > 1e-9 || *record.Threshold != 0.45 {
				t.Errorf("audit record = %+v", record)
			}
		})
	}
}

func TestVerifyConfidence(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "alice", testutil.Zero())

	decision := f.service.Verify(context.Background(), "alice", testutil.Zero())
	if *decision.Distance != 0 || *decision.Confidence != 1 {
		t.Errorf("identical descriptors: distance=%v confidence=%v", *decision.Distance, *decision.Confidence)
	}

	decision = f.service.Verify(context.Background(), "alice", testutil.Shifted(testutil.Zero(), 0, 0.9))
	if *decision.Confidence != 0 {
		t.Errorf("far mismatch confidence = %v, want 0", *decision.Confidence)
	}

	records := f.sink.Records()
	if *records[0].Threshold != descriptor.Threshold || *records[0].Confidence != 1 {
		t.Errorf("audit record = %+v", records[0])
	}
}

func TestVerifyStoreFailureIsNotEnrolled(t *testing.T) {
	sink := audit.NewMemory(nil)
	service, err := New(Config{Store: brokenStore{err: errors.New("disk on fire")}, Sink: sink})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	decision := service.Verify(context.Background(), "alice", testutil.Zero())
	if decision.Allowed || decision.Reason != ReasonNotEnrolled {
		t.Fatalf("decision = %+v, want IDENTITY_NOT_ENROLLED", decision)
	}
	if sink.Len() != 1 {
		t.Errorf("audit records = %d, want 1", sink.Len())
	}
}

func TestVerifyInvalidStoredDescriptor(t *testing.T) {
	for _, test := range []struct {
		name   string
		stored []float64
	}{
		{"short", make([]float64, 64)},
		{"infinite", testutil.Shifted(testutil.Zero(), 2, math.Inf(1))},
	} {
		t.Run(test.name, func(t *testing.T) {
			service, err := New(Config{Store: rawStore{values: test.stored}, Sink: audit.NewMemory(nil)})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			decision := service.Verify(context.Background(), "alice", testutil.Zero())
			if decision.Reason != ReasonNotEnrolled || decision.Evaluated() {
				t.Fatalf("decision = %+v, want IDENTITY_NOT_ENROLLED without distance", decision)
			}
		})
	}
}

func TestVerifyAuditFailureKeepsDecision(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "alice", testutil.Zero())
	f.sink.Fail(errors.New("audit disk full"))

	decision := f.service.Verify(context.Background(), "alice", testutil.Zero())
	if !decision.Allowed || decision.Reason != ReasonMatch {
		t.Fatalf("decision = %+v, want MATCH despite audit failure", decision)
	}
}

func TestVerifyDoesNotMutateStore(t *testing.T) {
	f := newFixture(t)
	enrolled := testutil.Descriptor(4)
	f.enroll(t, "alice", enrolled)
	before, err := f.store.Load(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	live := testutil.Descriptor(4)
	f.service.Verify(context.Background(), "alice", live)
	live[0] = 99

	after, err := f.store.Load(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) || after.Descriptor[0] != before.Descriptor[0] {
		t.Errorf("store changed: before %v/%v after %v/%v",
			before.UpdatedAt, before.Descriptor[0], after.UpdatedAt, after.Descriptor[0])
	}
}

func TestVerifyWindowRecordsWindow(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "alice", testutil.Zero())

	f.service.VerifyWindow(context.Background(), "kiosk-1", "alice", testutil.Zero())
	if window := f.sink.Records()[0].Window; window != "kiosk-1" {
		t.Errorf("Window = %q, want kiosk-1", window)
	}
}

func TestVerifyWindowDropsOversizedWindow(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "alice", testutil.Zero())

	decision := f.service.VerifyWindow(context.Background(), strings.Repeat("w", audit.MaxWindowLength+1), "alice", testutil.Zero())
	if !decision.Allowed {
		t.Fatalf("decision = %+v", decision)
	}
	records := f.sink.Records()
	if len(records) != 1 || records[0].Window != "" {
		t.Fatalf("audit records = %+v, want one record without window", records)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	decision := f.service.Reject(context.Background(), "", "alice", ReasonUnauthorizedWindow)
	if decision.Allowed || decision.Reason != ReasonUnauthorizedWindow || decision.Evaluated() {
		t.Fatalf("decision = %+v", decision)
	}
	records := f.sink.Records()
	if len(records) != 1 || records[0].Reason != "UNAUTHORIZED_WINDOW" || records[0].Outcome != audit.OutcomeFailure {
		t.Fatalf("audit records = %+v", records)
	}
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.service.Enroll(ctx, " ", testutil.Zero()); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("blank user: %v, want ErrInvalidUserID", err)
	}
	if err := f.service.Enroll(ctx, "alice", make([]float64, 3)); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("short descriptor: %v, want ErrInvalidDescriptor", err)
	}
	if _, err := f.store.Load(ctx, "alice"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("rejected enrollment was stored: %v", err)
	}

	f.enroll(t, "alice", testutil.Descriptor(1))
	f.enroll(t, "alice", testutil.Descriptor(2))
	if decision := f.service.Verify(ctx, "alice", testutil.Descriptor(2)); !decision.Allowed {
		t.Errorf("re-enrolled descriptor did not match: %+v", decision)
	}
	if decision := f.service.Verify(ctx, "alice", testutil.Descriptor(1)); decision.Allowed {
		t.Errorf("replaced descriptor still matches: %+v", decision)
	}
	if f.sink.Len() != 2 {
		t.Errorf("audit records = %d, want 2 (enrollment is not audited)", f.sink.Len())
	}
}

func TestEnrollStorageFailure(t *testing.T) {
	cause := errors.New("read-only filesystem")
	service, err := New(Config{Store: brokenStore{err: cause}, Sink: audit.NewMemory(nil)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = service.Enroll(context.Background(), "alice", testutil.Zero())
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("Enroll = %v, want ErrStorage wrapping the cause", err)
	}
}

func TestReasonMessages(t *testing.T) {
	for _, reason := range []Reason{
		ReasonInvalidUserID, ReasonInvalidLiveDescriptor, ReasonNotEnrolled,
		ReasonMaxAttempts, ReasonUnauthorizedWindow, ReasonVerifyError,
	} {
		if !reason.Valid() || reason.Message() == "" {
			t.Errorf("%s: valid=%v message=%q", reason, reason.Valid(), reason.Message())
		}
	}
	if ReasonMatch.Message() != "" || ReasonMismatch.Message() != "" {
		t.Error("MATCH and MISMATCH should have no error message")
	}
	if Reason("NOPE").Valid() {
		t.Error("unknown reason reported valid")
	}
}
