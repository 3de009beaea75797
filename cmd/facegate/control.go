// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/facegate/lib/cli"
	"github.com/bureau-foundation/facegate/lib/faceauth"
	"github.com/bureau-foundation/facegate/lib/process"
	"github.com/bureau-foundation/facegate/lib/version"
)

// callResult runs an action that answers with a faceauth.Result and
// reports it. A Result with Success false exits 1.
func (a *app) callResult(ctx context.Context, action string, fields map[string]any, success string) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	var result faceauth.Result
	if err := client.Call(ctx, action, fields, &result); err != nil {
		return err
	}

	if a.jsonOutput {
		if err := cli.WriteJSON(a.stdout, result); err != nil {
			return err
		}
	} else if result.Success {
		a.printer().Success("%s", success)
	} else {
		a.printer().Failure("%s", result.Error)
	}
	if !result.Success {
		return &process.ExitError{Code: 1}
	}
	return nil
}

func (a *app) lockCommand() *cli.Command {
	var window, userID, reason string
	return &cli.Command{
		Name:    "lock",
		Summary: "Lock the system and record a lockout",
		Description: `Revoke authentication and privileged mode, then record a lockout in the
audit log. With --window only that window is affected; without it every
window is revoked.`,
		Usage: "facegate lock [--window ID] [--user USER] [--reason REASON]",
		Flags: func() *pflag.FlagSet {
			flags := a.flags("lock")
			flags.StringVar(&window, "window", "", "window to lock (default: every window)")
			flags.StringVar(&userID, "user", "", "user the lockout is recorded against (default: unknown)")
			flags.StringVar(&reason, "reason", "", "lockout reason (default: MAX_ATTEMPTS_REACHED)")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usageError("lock takes no positional arguments, got %q", args[0])
			}
			return a.callResult(ctx, "lock-system", map[string]any{
				"window": window,
				"userId": userID,
				"reason": reason,
			}, "System locked")
		},
	}
}

func (a *app) kioskCommand() *cli.Command {
	var window string
	return &cli.Command{
		Name:    "kiosk",
		Summary: "Turn privileged kiosk mode on or off for a window",
		Description: `Turning kiosk mode on requires the window to have passed verification.
Turning it off always succeeds and also revokes the window's
authentication.`,
		Usage: "facegate kiosk on|off --window ID",
		Flags: func() *pflag.FlagSet {
			flags := a.flags("kiosk")
			flags.StringVar(&window, "window", "", "window to change (required)")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("kiosk takes exactly one argument: on or off")
			}
			var enable bool
			switch args[0] {
			case "on":
				enable = true
			case "off":
			default:
				return usageError("kiosk argument must be on or off, got %q", args[0])
			}
			if window == "" {
				return usageError("--window is required")
			}
			return a.callResult(ctx, "set-privileged-mode", map[string]any{
				"window": window,
				"enable": enable,
			}, fmt.Sprintf("Kiosk mode %s for %s", args[0], window))
		},
	}
}

func (a *app) logCommand() *cli.Command {
	var (
		flags   *pflag.FlagSet
		request faceauth.AttemptRequest
		numbers struct{ distance, threshold, confidence float64 }
	)
	return &cli.Command{
		Name:    "log",
		Summary: "Record an authentication attempt made elsewhere",
		Usage:   "facegate log --user USER --outcome success|failure|lockout [--reason R] [--distance D]",
		Flags: func() *pflag.FlagSet {
			flags = a.flags("log")
			flags.StringVar(&request.UserID, "user", "", "user the attempt belongs to (required)")
			flags.StringVar(&request.Outcome, "outcome", "", "success, failure, or lockout (required)")
			flags.StringVar(&request.Reason, "reason", "", "reason code")
			flags.StringVar(&request.Window, "window", "", "window the attempt came from")
			flags.Float64Var(&numbers.distance, "distance", 0, "measured distance")
			flags.Float64Var(&numbers.threshold, "threshold", 0, "threshold the distance was compared with")
			flags.Float64Var(&numbers.confidence, "confidence", 0, "derived confidence")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return usageError("log takes no positional arguments, got %q", args[0])
			}
			if flags.Changed("distance") {
				request.Distance = &numbers.distance
			}
			if flags.Changed("threshold") {
				request.Threshold = &numbers.threshold
			}
			if flags.Changed("confidence") {
				request.Confidence = &numbers.confidence
			}
			return a.callResult(ctx, "log-auth-attempt", map[string]any{
				"userId":     request.UserID,
				"outcome":    request.Outcome,
				"reason":     request.Reason,
				"window":     request.Window,
				"distance":   request.Distance,
				"threshold":  request.Threshold,
				"confidence": request.Confidence,
			}, "Attempt recorded")
		},
	}
}

func (a *app) closeCommand() *cli.Command {
	return &cli.Command{
		Name:    "close",
		Summary: "Forget a window's authentication and kiosk state",
		Usage:   "facegate close <window>",
		Flags:   func() *pflag.FlagSet { return a.flags("close") },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return usageError("close takes exactly one window ID")
			}
			return a.callResult(ctx, "close-window", map[string]any{"window": args[0]},
				fmt.Sprintf("Window %s closed", args[0]))
		},
	}
}

func (a *app) statusCommand() *cli.Command {
	var window string
	return &cli.Command{
		Name:    "status",
		Summary: "Show gate counts and the fixed decision policy",
		Usage:   "facegate status [--window ID]",
		Flags: func() *pflag.FlagSet {
			flags := a.flags("status")
			flags.StringVar(&window, "window", "", "also report this window's authentication")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			var fields map[string]any
			if window != "" {
				fields = map[string]any{"window": window}
			}
			var status faceauth.StatusResponse
			if err := client.Call(ctx, "status", fields, &status); err != nil {
				return err
			}
			if a.jsonOutput {
				return cli.WriteJSON(a.stdout, status)
			}
			printer := a.printer()
			printer.Success("facegate-service is running")
			printer.Field("windows", status.AuthenticatedWindows)
			printer.Field("kiosk", status.PrivilegedWindows)
			printer.Field("threshold", status.Threshold)
			printer.Field("attempts", status.MaxAttempts)
			printer.Field("dimensions", status.DescriptorLength)
			printer.Field("elevate", status.ElevateOnMatch)
			if status.Window != nil {
				printer.Field("window", status.Window.Window)
				printer.Field("authenticated", status.Window.Authenticated)
				if status.Window.AuthenticatedAt != nil {
					printer.Field("since", status.Window.AuthenticatedAt.Format(time.RFC3339))
				}
				printer.Field("privileged", status.Window.Privileged)
			}
			return nil
		},
	}
}

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags:   func() *pflag.FlagSet { return a.flags("version") },
		Run: func(ctx context.Context, args []string) error {
			if a.jsonOutput {
				return cli.WriteJSON(a.stdout, map[string]string{
					"version": version.Short(),
					"info":    version.Info(),
				})
			}
			fmt.Fprintf(a.stdout, "facegate %s\n", version.Full())
			return nil
		},
	}
}
