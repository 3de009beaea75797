// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/facegate/lib/audit"
	"github.com/bureau-foundation/facegate/lib/descriptor"
	"github.com/bureau-foundation/facegate/lib/identity"
)

var (
	// ErrInvalidUserID is returned by Enroll for a blank user ID.
	ErrInvalidUserID = errors.New("verify: invalid user ID")

	// ErrInvalidDescriptor is returned by Enroll for a descriptor
	// that is not 128 finite values.
	ErrInvalidDescriptor = errors.New("verify: descriptor must be a 128D numeric vector")

	// ErrStorage wraps identity store failures from Enroll.
	ErrStorage = errors.New("verify: identity storage failed")
)

// Decision is the result of one verification.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Distance and Confidence are nil unless both descriptors were
	// valid and a distance was computed.
	Distance   *float64
	Threshold  float64
	Confidence *float64
}

// Evaluated reports whether a distance was computed.
func (d Decision) Evaluated() bool {
	return d.Distance != nil
}

// Config configures a Service.
type Config struct {
	Store identity.Store
	Sink  audit.Sink

	Logger *slog.Logger
}

// Service verifies and enrolls identities. It holds no per-call
// state and is safe for concurrent use.
type Service struct {
	store  identity.Store
	sink   audit.Sink
	logger *slog.Logger
}

// New returns a Service. Store and Sink are required.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("verify: identity store is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("verify: audit sink is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: cfg.Store, sink: cfg.Sink, logger: logger}, nil
}

// Verify decides whether live matches the descriptor enrolled for
// userID. See VerifyWindow.
func (s *Service) Verify(ctx context.Context, userID string, live []float64) Decision {
	return s.VerifyWindow(ctx, "", userID, live)
}

// VerifyWindow is Verify with the requesting window recorded in the
// audit record.
func (s *Service) VerifyWindow(ctx context.Context, window, userID string, live []float64) Decision {
	decision := s.decide(ctx, userID, live)
	s.record(ctx, window, userID, decision)
	return decision
}

func (s *Service) decide(ctx context.Context, userID string, live []float64) Decision {
	denied := func(reason Reason) Decision {
		return Decision{Reason: reason, Threshold: descriptor.Threshold}
	}

	if !validUserID(userID) {
		return denied(ReasonInvalidUserID)
	}
	if !descriptor.Validate(live) {
		return denied(ReasonInvalidLiveDescriptor)
	}

	stored, err := s.store.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			s.logger.Error("identity lookup failed", "user_id", userID, "error", err)
		}
		return denied(ReasonNotEnrolled)
	}
	if !descriptor.Validate(stored.Descriptor) {
		s.logger.Warn("stored descriptor is invalid", "user_id", userID, "length", len(stored.Descriptor))
		return denied(ReasonNotEnrolled)
	}

	distance := descriptor.Distance(live, stored.Descriptor)
	confidence := descriptor.Confidence(distance, descriptor.Threshold)
	decision := Decision{
		Allowed:    descriptor.Matches(distance),
		Reason:     ReasonMismatch,
		Distance:   &distance,
		Threshold:  descriptor.Threshold,
		Confidence: &confidence,
	}
	if decision.Allowed {
		decision.Reason = ReasonMatch
	}
	return decision
}

// Reject records a denial that was decided before the descriptor was
// looked at, such as a request with no window. It writes one audit
// record and returns the decision.
func (s *Service) Reject(ctx context.Context, window, userID string, reason Reason) Decision {
	decision := Decision{Reason: reason, Threshold: descriptor.Threshold}
	s.record(ctx, window, userID, decision)
	return decision
}

func (s *Service) record(ctx context.Context, window, userID string, decision Decision) {
	if len(window) > audit.MaxWindowLength || !utf8.ValidString(window) {
		window = ""
	}
	record := audit.Record{
		UserID:  userID,
		Outcome: audit.OutcomeFailure,
		Reason:  string(decision.Reason),
		Window:  window,
	}
	if !validUserID(record.UserID) {
		record.UserID = audit.UnknownUser
	}
	if decision.Allowed {
		record.Outcome = audit.OutcomeSuccess
	}
	if decision.Evaluated() {
		record.Distance = audit.Float(*decision.Distance)
		record.Threshold = audit.Float(decision.Threshold)
		record.Confidence = audit.Float(*decision.Confidence)
	}

	if err := s.sink.Append(ctx, record); err != nil {
		s.logger.Warn("audit append failed",
			"user_id", record.UserID,
			"reason", record.Reason,
			"error", err,
		)
	}

	level := slog.LevelInfo
	if !decision.Allowed {
		level = slog.LevelWarn
	}
	attrs := []any{"user_id", record.UserID, "reason", decision.Reason}
	if window != "" {
		attrs = append(attrs, "window", window)
	}
	if decision.Evaluated() {
		attrs = append(attrs, "distance", *decision.Distance, "confidence", *decision.Confidence)
	}
	s.logger.Log(ctx, level, "identity verification", attrs...)
}

// Enroll validates descriptor and stores it for userID, replacing any
// previous enrollment.
func (s *Service) Enroll(ctx context.Context, userID string, values []float64) error {
	if !validUserID(userID) {
		return ErrInvalidUserID
	}
	if !descriptor.Validate(values) {
		return ErrInvalidDescriptor
	}
	if err := s.store.Save(ctx, userID, values); err != nil {
		s.logger.Error("enrollment failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.logger.Info("identity enrolled", "user_id", userID)
	return nil
}

// validUserID reports whether userID is non-blank and fits in an audit
// record.
func validUserID(userID string) bool {
	return strings.TrimSpace(userID) != "" && len(userID) <= audit.MaxUserIDLength && utf8.ValidString(userID)
}
