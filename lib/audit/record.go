// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/bureau-foundation/facegate/lib/clock"
)

// ErrInvalidRecord is returned by Append for a record that fails
// Validate. Nothing is written.
var ErrInvalidRecord = errors.New("audit: invalid record")

// Outcome is the result class of an attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeLockout Outcome = "lockout"
)

// Valid reports whether o is one of the three outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeLockout:
		return true
	}
	return false
}

// Limits on the free-text fields. A journal line must stay under the
// reader's line limit or the chain could not be verified or resumed.
const (
	MaxUserIDLength = 1024
	MaxReasonLength = 1024
	MaxWindowLength = 256
)

// UnknownUser is recorded in place of a missing or blank user ID.
const UnknownUser = "unknown"

// Record is one authentication attempt.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`

	// Distance, Threshold, and Confidence are set only when a
	// distance was actually computed.
	Distance   *float64 `json:"distance,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// Window is the UI window the attempt came from, if any.
	Window string `json:"window,omitempty"`

	// PreviousHash and Hash link journal lines. Other sinks leave
	// them empty.
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
}

// Validate checks the fields a caller controls.
func (r Record) Validate() error {
	var problems []string
	if strings.TrimSpace(r.UserID) == "" {
		problems = append(problems, "userId is empty")
	}
	for _, field := range []struct {
		name  string
		value string
		limit int
	}{
		{"userId", r.UserID, MaxUserIDLength},
		{"reason", r.Reason, MaxReasonLength},
		{"window", r.Window, MaxWindowLength},
	} {
		if len(field.value) > field.limit {
			problems = append(problems, fmt.Sprintf("%s is %d bytes, limit %d", field.name, len(field.value), field.limit))
		}
		// JSON encoding rewrites invalid UTF-8, so the stored bytes
		// would no longer hash to the sealed value.
		if !utf8.ValidString(field.value) {
			problems = append(problems, field.name+" is not valid UTF-8")
		}
	}
	if !r.Outcome.Valid() {
		problems = append(problems, fmt.Sprintf("outcome %q is not success, failure, or lockout", r.Outcome))
	}
	for _, field := range []struct {
		name  string
		value *float64
	}{
		{"distance", r.Distance},
		{"threshold", r.Threshold},
		{"confidence", r.Confidence},
	} {
		if field.value != nil && (math.IsNaN(*field.value) || math.IsInf(*field.value, 0)) {
			problems = append(problems, field.name+" is not finite")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
	}
	return nil
}

// Sink accepts audit records.
type Sink interface {
	Append(ctx context.Context, record Record) error
}

// Float returns a pointer to v, for the optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

// stamp fills in the ID and timestamp if the caller left them empty.
// Timestamps are normalized to UTC.
func stamp(record *Record, clk clock.Clock) {
	if record.Timestamp.IsZero() {
		record.Timestamp = clk.Now()
	}
	record.Timestamp = record.Timestamp.UTC()
	if record.ID == "" {
		record.ID = ulid.MustNew(ulid.Timestamp(record.Timestamp), ulid.DefaultEntropy()).String()
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

func (r Record) clone() Record {
	r.Distance = cloneFloat(r.Distance)
	r.Threshold = cloneFloat(r.Threshold)
	r.Confidence = cloneFloat(r.Confidence)
	return r
}
