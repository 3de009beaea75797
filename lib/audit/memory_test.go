// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/facegate/lib/clock"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRecordValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		record Record
		valid  bool
	}{
		{"success", Record{UserID: "alice", Outcome: OutcomeSuccess}, true},
		{"lockout", Record{UserID: "unknown", Outcome: OutcomeLockout, Reason: "MAX_ATTEMPTS_REACHED"}, true},
		{"with distance", Record{UserID: "alice", Outcome: OutcomeFailure, Distance: Float(0.6)}, true},
		{"blank user", Record{UserID: "  ", Outcome: OutcomeFailure}, false},
		{"bad outcome", Record{UserID: "alice", Outcome: "maybe"}, false},
		{"NaN distance", Record{UserID: "alice", Outcome: OutcomeFailure, Distance: Float(math.NaN())}, false},
		{"Inf confidence", Record{UserID: "alice", Outcome: OutcomeFailure, Confidence: Float(math.Inf(1))}, false},
		{"user at limit", Record{UserID: strings.Repeat("u", MaxUserIDLength), Outcome: OutcomeFailure}, true},
		{"long user", Record{UserID: strings.Repeat("u", MaxUserIDLength+1), Outcome: OutcomeFailure}, false},
		{"long reason", Record{UserID: "alice", Outcome: OutcomeFailure, Reason: strings.Repeat("r", MaxReasonLength+1)}, false},
		{"invalid UTF-8 user", Record{UserID: "al\xffice", Outcome: OutcomeFailure}, false},
		{"long window", Record{UserID: "alice", Outcome: OutcomeFailure, Window: strings.Repeat("w", MaxWindowLength+1)}, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.record.Validate()
			if test.valid && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !test.valid && !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Validate = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestMemoryStampsAndCopies(t *testing.T) {
	fake := clock.Fake(testEpoch)
	sink := NewMemory(fake)

	distance := 0.3
	record := Record{UserID: "alice", Outcome: OutcomeSuccess, Reason: "MATCH", Distance: &distance}
	if err := sink.Append(context.Background(), record); err != nil {
		t.Fatalf("Append: %v", err)
	}
	distance = 99

	fake.Advance(time.Second)
	if err := sink.Append(context.Background(), Record{UserID: "bob", Outcome: OutcomeFailure}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records := sink.Records()
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if *records[0].Distance != 0.3 {
		t.Errorf("stored distance aliased caller's variable: %v", *records[0].Distance)
	}
	if !records[0].Timestamp.Equal(testEpoch) || !records[1].Timestamp.Equal(testEpoch.Add(time.Second)) {
		t.Errorf("timestamps = %v, %v", records[0].Timestamp, records[1].Timestamp)
	}
	if records[0].ID == "" || records[0].ID == records[1].ID {
		t.Errorf("ids = %q, %q", records[0].ID, records[1].ID)
	}
	if records[0].ID >= records[1].ID {
		t.Errorf("ULIDs not ordered by time: %s >= %s", records[0].ID, records[1].ID)
	}

	*records[0].Distance = 7
	if *sink.Records()[0].Distance != 0.3 {
		t.Error("Records returned an aliased pointer")
	}
}

func TestMemoryRejectsInvalidAndFails(t *testing.T) {
	sink := NewMemory(clock.Fake(testEpoch))

	if err := sink.Append(context.Background(), Record{Outcome: OutcomeFailure}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Append = %v, want ErrInvalidRecord", err)
	}

	injected := errors.New("disk full")
	sink.Fail(injected)
	if err := sink.Append(context.Background(), Record{UserID: "alice", Outcome: OutcomeFailure}); !errors.Is(err, injected) {
		t.Errorf("Append = %v, want injected error", err)
	}
	sink.Fail(nil)
	if err := sink.Append(context.Background(), Record{UserID: "alice", Outcome: OutcomeFailure}); err != nil {
		t.Errorf("Append after recovery: %v", err)
	}
	if sink.Len() != 1 {
		t.Errorf("Len = %d, want 1", sink.Len())
	}
}
