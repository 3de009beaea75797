// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/facegate/lib/clock"
)

// DefaultStableFrames is how many consecutive single-face frames an
// enrollment needs.
const DefaultStableFrames = 3

// EnrollPhase is where an enrollment is.
type EnrollPhase string

const (
	EnrollIdle      EnrollPhase = "idle"
	EnrollLoading   EnrollPhase = "loading"
	EnrollDetecting EnrollPhase = "detecting"
	EnrollSaving    EnrollPhase = "saving"
	EnrollSucceeded EnrollPhase = "succeeded"
	EnrollFailed    EnrollPhase = "failed"
)

// EnrollState is the observable state of an enrollment.
type EnrollState struct {
	Phase EnrollPhase

	// Stable counts consecutive single-face frames so far.
	Stable int

	// Message is guidance for the person in front of the camera, or
	// the failure text.
	Message string
}

// EnrollFunc saves a descriptor for a user.
type EnrollFunc func(ctx context.Context, userID string, descriptor []float64) error

// EnrollerConfig configures an Enroller.
type EnrollerConfig struct {
	UserID   string
	Detector Detector
	Enroll   EnrollFunc

	// StableFrames is the run of single-face frames required before
	// saving. Default: DefaultStableFrames.
	StableFrames int

	// Interval between captures. Default: DefaultInterval.
	Interval time.Duration

	OnChange func(EnrollState)

	Clock  clock.Clock
	Logger *slog.Logger
}

// Enroller captures a face and enrolls it.
type Enroller struct {
	config EnrollerConfig
	logger *slog.Logger
	state  EnrollState
}

// NewEnroller validates cfg.
func NewEnroller(cfg EnrollerConfig) (*Enroller, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, fmt.Errorf("session: a valid user ID is required for face enrollment")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("session: detector is required")
	}
	if cfg.Enroll == nil {
		return nil, fmt.Errorf("session: enroll function is required")
	}
	if cfg.StableFrames <= 0 {
		cfg.StableFrames = DefaultStableFrames
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Enroller{
		config: cfg,
		logger: cfg.Logger.With("user_id", cfg.UserID),
		state:  EnrollState{Phase: EnrollIdle, Message: "Idle"},
	}, nil
}

// Run blocks until the descriptor is saved, a step fails, or ctx is
// done. The detector is closed before Run returns.
func (e *Enroller) Run(ctx context.Context) error {
	defer func() {
		if err := e.config.Detector.Close(); err != nil {
			e.logger.Warn("closing detector failed", "error", err)
		}
	}()

	e.set(EnrollState{Phase: EnrollLoading, Message: "Loading face models..."})
	if err := e.config.Detector.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failure := loadFailure(err)
		return e.fail(Message(failure.Cause, failure.Detail), err)
	}

	ticker := e.config.Clock.NewTicker(e.config.Interval)
	defer ticker.Stop()

	stable := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		faces, err := e.config.Detector.Detect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return e.fail(err.Error(), err)
		}

		switch len(faces) {
		case 0:
			stable = 0
			e.set(EnrollState{Phase: EnrollDetecting, Message: "No face detected. Align face with camera."})
			continue
		case 1:
		default:
			stable = 0
			e.set(EnrollState{Phase: EnrollDetecting, Message: Message(CauseMultipleFaces, "")})
			continue
		}

		stable++
		if stable < e.config.StableFrames {
			e.set(EnrollState{Phase: EnrollDetecting, Stable: stable, Message: "Hold still to complete enrollment..."})
			continue
		}

		e.set(EnrollState{Phase: EnrollSaving, Stable: stable, Message: "Saving descriptor..."})
		if err := e.config.Enroll(ctx, e.config.UserID, faces[0].Descriptor); err != nil {
			return e.fail(fmt.Sprintf("Failed to save descriptor: %v", err), err)
		}
		e.logger.Info("face enrollment saved", "stable_frames", stable)
		e.set(EnrollState{Phase: EnrollSucceeded, Stable: stable, Message: "Face registration successful"})
		return nil
	}
}

// State returns the last state. Only meaningful after Run returns or
// from OnChange.
func (e *Enroller) State() EnrollState { return e.state }

func (e *Enroller) fail(message string, err error) error {
	e.logger.Warn("face enrollment failed", "error", err)
	e.set(EnrollState{Phase: EnrollFailed, Message: message})
	return errors.Join(ErrEnrollmentFailed, err)
}

func (e *Enroller) set(state EnrollState) {
	e.state = state
	if e.config.OnChange != nil {
		e.config.OnChange(state)
	}
}

// ErrEnrollmentFailed is joined with the underlying cause when Run
// fails.
var ErrEnrollmentFailed = errors.New("session: face registration failed")
