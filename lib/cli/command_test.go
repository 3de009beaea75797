// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesNestedSubcommands(t *testing.T) {
	var called string
	var received []string

	root := &Command{
		Name: "facegate",
		Subcommands: []*Command{
			{Name: "version", Run: func(context.Context, []string) error {
				called = "version"
				return nil
			}},
			{
				Name: "audit",
				Subcommands: []*Command{
					{Name: "verify", Run: func(_ context.Context, args []string) error {
						called = "audit verify"
						received = args
						return nil
					}},
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"audit", "verify", "audit.jsonl"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "audit verify" {
		t.Errorf("dispatched to %q", called)
	}
	if len(received) != 1 || received[0] != "audit.jsonl" {
		t.Errorf("args = %v", received)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var socketPath string
	var user string

	command := &Command{
		Name: "verify",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flagSet.StringVar(&socketPath, "socket", "/run/facegate.sock", "daemon socket")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			user = args[0]
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--socket", "/tmp/x.sock", "alice"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if socketPath != "/tmp/x.sock" || user != "alice" {
		t.Errorf("socket=%q user=%q", socketPath, user)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name:       "facegate",
		HelpOutput: &bytes.Buffer{},
		Subcommands: []*Command{
			{Name: "enroll", Run: func(context.Context, []string) error { return nil }},
			{Name: "verify", Run: func(context.Context, []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"verfy"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `did you mean "verify"`) {
		t.Errorf("error = %v", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant typo error = %v", err)
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "scan",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("scan", pflag.ContinueOnError)
			flagSet.String("frames", "", "frames file")
			flagSet.Bool("json", false, "JSON output")
			return flagSet
		},
		Run: func(context.Context, []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--frame", "f.jsonl"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "did you mean --frames") {
		t.Errorf("error = %v", err)
	}
}

func TestHelpListsSubcommandsAndExamples(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:       "facegate",
		HelpOutput: &output,
		Subcommands: []*Command{
			{
				Name:    "lock",
				Summary: "Lock the system",
				Examples: []Example{
					{Description: "Lock after too many failures", Command: "facegate lock --user alice"},
				},
				Run: func(context.Context, []string) error { return nil },
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(output.String(), "lock") || !strings.Contains(output.String(), "Lock the system") {
		t.Errorf("root help = %q", output.String())
	}

	output.Reset()
	if err := root.Execute(context.Background(), []string{"lock", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(output.String(), "facegate lock --user alice") {
		t.Errorf("lock help = %q", output.String())
	}
}

func TestSubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "facegate",
		HelpOutput:  &bytes.Buffer{},
		Subcommands: []*Command{{Name: "status"}},
	}
	if err := root.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error when no subcommand is given")
	}
}

func TestLevenshtein(t *testing.T) {
	for _, test := range []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "lock", 4},
		{"lock", "lock", 0},
		{"verfy", "verify", 1},
		{"kiosk", "kisok", 2},
		{"lock", "locked", 2},
	} {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
