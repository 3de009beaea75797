// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/facegate/lib/cli"
	"github.com/bureau-foundation/facegate/lib/process"
	"github.com/bureau-foundation/facegate/lib/session"
)

// stateView is the JSON line written per state change by scan --json.
type stateView struct {
	Phase      session.Phase `json:"phase"`
	Attempts   int           `json:"attempts"`
	Message    string        `json:"message"`
	Cause      session.Cause `json:"cause,omitempty"`
	Distance   *float64      `json:"distance,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
}

func (a *app) scanCommand() *cli.Command {
	var (
		flags    *pflag.FlagSet
		window   string
		frames   string
		interval time.Duration
	)
	return &cli.Command{
		Name:    "scan",
		Summary: "Run a face login session from captured frames",
		Description: fmt.Sprintf(`Replay frames from a capture file through the login loop. Each tick
takes one frame; a frame with exactly one face is sent to the daemon
for a decision. The session ends on the first match, or locks the
window after %d failed attempts.

Exits 0 on success and 1 on lockout.`, session.MaxAttempts),
		Usage: "facegate scan <user> --frames FILE [--window ID] [--interval 600ms]",
		Examples: []cli.Example{
			{Description: "Log in from a recorded capture", Command: "facegate scan alice --frames login.jsonl --window desk-3"},
		},
		Flags: func() *pflag.FlagSet {
			flags = a.flags("scan")
			flags.StringVar(&window, "window", "", "window to authenticate (default: a new random ID)")
			flags.StringVar(&frames, "frames", "", "JSONL capture file, one array of descriptors per line (required)")
			flags.DurationVar(&interval, "interval", session.DefaultInterval, "time between captures")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("scan takes exactly one user")
			}
			if frames == "" {
				return usageError("--frames is required")
			}
			if window == "" {
				window = uuid.NewString()
			}
			if !flags.Changed("interval") {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				if cfg != nil {
					interval = cfg.ScanInterval()
				}
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			peer := &remote{client: client, window: window}

			report := a.stateReporter()
			scanner, err := session.NewScanner(session.ScannerConfig{
				UserID:   args[0],
				Detector: newFrameDetector(frames),
				Verifier: peer,
				Locker:   peer,
				Interval: interval,
				OnChange: report,
				Clock:    a.clock,
				Logger:   a.logger("scan").With("window", window),
			})
			if err != nil {
				return usageError("%v", err)
			}

			scanner.Start(ctx)
			select {
			case <-scanner.Done():
			case <-ctx.Done():
			}
			scanner.Stop()

			switch scanner.State().Phase {
			case session.PhaseSuccess:
				return nil
			case session.PhaseLocked:
				return &process.ExitError{Code: 1}
			}
			return ctx.Err()
		},
	}
}

// stateReporter returns an OnChange callback that prints each state
// as a styled line, or as a JSON line with --json.
func (a *app) stateReporter() func(session.State) {
	var mu sync.Mutex
	encoder := json.NewEncoder(a.stdout)
	printer := a.printer()
	return func(state session.State) {
		mu.Lock()
		defer mu.Unlock()
		if a.jsonOutput {
			encoder.Encode(stateView{
				Phase:      state.Phase,
				Attempts:   state.Attempts,
				Message:    state.Message,
				Cause:      state.Cause,
				Distance:   state.Distance,
				Confidence: state.Confidence,
			})
			return
		}
		switch state.Phase {
		case session.PhaseSuccess:
			printer.Success("%s", state.Message)
		case session.PhaseFailure:
			printer.Failure("%s (attempt %d of %d)", state.Message, state.Attempts, session.MaxAttempts)
		case session.PhaseLocked:
			printer.Failure("%s", state.Message)
		default:
			printer.Warning("%s", state.Message)
		}
	}
}

func (a *app) registerCommand() *cli.Command {
	var (
		flags    *pflag.FlagSet
		frames   string
		stable   int
		interval time.Duration
	)
	return &cli.Command{
		Name:    "register",
		Summary: "Enroll a user from captured frames",
		Description: `Replay frames from a capture file until enough consecutive frames show
exactly one face, then enroll that face's descriptor with the daemon.
A frame with no face or several faces restarts the count.`,
		Usage: "facegate register <user> --frames FILE [--stable-frames 3]",
		Flags: func() *pflag.FlagSet {
			flags = a.flags("register")
			flags.StringVar(&frames, "frames", "", "JSONL capture file, one array of descriptors per line (required)")
			flags.IntVar(&stable, "stable-frames", session.DefaultStableFrames, "consecutive single-face frames required")
			flags.DurationVar(&interval, "interval", session.DefaultInterval, "time between captures")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("register takes exactly one user")
			}
			if frames == "" {
				return usageError("--frames is required")
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg != nil {
				if !flags.Changed("interval") {
					interval = cfg.ScanInterval()
				}
				if !flags.Changed("stable-frames") {
					stable = cfg.Session.StableFrames
				}
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			peer := &remote{client: client}

			printer := a.printer()
			encoder := json.NewEncoder(a.stdout)
			enroller, err := session.NewEnroller(session.EnrollerConfig{
				UserID:       args[0],
				Detector:     newFrameDetector(frames),
				Enroll:       peer.Enroll,
				StableFrames: stable,
				Interval:     interval,
				OnChange: func(state session.EnrollState) {
					switch {
					case a.jsonOutput:
						encoder.Encode(map[string]any{
							"phase":   state.Phase,
							"stable":  state.Stable,
							"message": state.Message,
						})
					case state.Phase == session.EnrollSucceeded:
						printer.Success("%s", state.Message)
					case state.Phase == session.EnrollFailed:
						printer.Failure("%s", state.Message)
					default:
						printer.Warning("%s", state.Message)
					}
				},
				Clock:  a.clock,
				Logger: a.logger("register"),
			})
			if err != nil {
				return usageError("%v", err)
			}

			err = enroller.Run(ctx)
			if errors.Is(err, session.ErrEnrollmentFailed) {
				return &process.ExitError{Code: 1}
			}
			return err
		},
	}
}
