// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/facegate/lib/cli"
	"github.com/bureau-foundation/facegate/lib/faceauth"
	"github.com/bureau-foundation/facegate/lib/process"
)

func (a *app) enrollCommand() *cli.Command {
	return &cli.Command{
		Name:    "enroll",
		Summary: "Store a reference descriptor for a user",
		Description: `Enroll or re-enroll a user with a descriptor. Re-enrollment replaces
the stored descriptor and keeps the original creation time.`,
		Usage: "facegate enroll <user> [descriptor.json]",
		Examples: []cli.Example{
			{Description: "Enroll from a file", Command: "facegate enroll alice alice.json"},
			{Description: "Enroll from a pipeline", Command: "extract-embedding photo.jpg | facegate enroll alice"},
		},
		Flags: func() *pflag.FlagSet { return a.flags("enroll") },
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return usageError("enroll takes a user and an optional descriptor file")
			}
			descriptor, err := readDescriptor(args[1:], a.stdin)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			var response faceauth.EnrollResponse
			err = client.Call(ctx, "enroll-identity", map[string]any{
				"userId":     args[0],
				"descriptor": descriptor,
			}, &response)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				if err := cli.WriteJSON(a.stdout, response); err != nil {
					return err
				}
			} else if response.Success {
				a.printer().Success("%s", response.Message)
			} else {
				a.printer().Failure("%s", response.Error)
			}
			if !response.Success {
				return &process.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func (a *app) verifyCommand() *cli.Command {
	var window string
	return &cli.Command{
		Name:    "verify",
		Summary: "Check a live descriptor against a user's enrollment",
		Description: `Ask the daemon for a decision on one live descriptor. A match marks the
window as authenticated; any other outcome revokes it. Every call is
recorded in the audit log.

Exits 0 when access is allowed and 1 otherwise.`,
		Usage: "facegate verify <user> [descriptor.json] [--window ID]",
		Flags: func() *pflag.FlagSet {
			flags := a.flags("verify")
			flags.StringVar(&window, "window", "", "window to authenticate (default: a new random ID)")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return usageError("verify takes a user and an optional descriptor file")
			}
			descriptor, err := readDescriptor(args[1:], a.stdin)
			if err != nil {
				return err
			}
			if window == "" {
				window = uuid.NewString()
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			var response faceauth.VerifyResponse
			err = client.Call(ctx, "verify-identity", map[string]any{
				"window":     window,
				"userId":     args[0],
				"descriptor": descriptor,
			}, &response)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				if err := cli.WriteJSON(a.stdout, response); err != nil {
					return err
				}
			} else {
				a.printDecision(args[0], window, response)
			}
			if !response.Allow {
				return &process.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func (a *app) printDecision(userID, window string, response faceauth.VerifyResponse) {
	printer := a.printer()
	switch {
	case response.Allow:
		printer.Success("%s verified", userID)
	case response.Error != "":
		printer.Failure("%s", response.Error)
	default:
		printer.Failure("%s did not match", userID)
	}
	printer.Field("reason", response.Reason)
	printer.Field("window", window)
	if response.Distance != nil {
		printer.Field("distance", fmt.Sprintf("%.4f", *response.Distance))
	}
	if response.Threshold != nil {
		printer.Field("threshold", fmt.Sprintf("%.2f", *response.Threshold))
	}
	if response.Confidence != nil {
		printer.Field("confidence", fmt.Sprintf("%.1f%%", *response.Confidence*100))
	}
}

// readDescriptor reads a JSON array of numbers from the file named by
// args[0], or from stdin. Comments and trailing commas are accepted.
// Length and finiteness are left to the daemon.
func readDescriptor(args []string, stdin io.Reader) ([]float64, error) {
	var (
		data []byte
		err  error
	)
	if len(args) > 0 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}

	var values []float64
	if err := json.Unmarshal(jsonc.ToJSON(data), &values); err != nil {
		return nil, fmt.Errorf("descriptor must be a JSON array of numbers: %w", err)
	}
	return values, nil
}

func usageError(format string, args ...any) error {
	return &process.ExitError{Code: 2, Err: fmt.Errorf(format, args...)}
}
