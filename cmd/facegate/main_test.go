// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/facegate/lib/audit"
	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/faceauth"
	"github.com/bureau-foundation/facegate/lib/gate"
	"github.com/bureau-foundation/facegate/lib/identity"
	"github.com/bureau-foundation/facegate/lib/process"
	"github.com/bureau-foundation/facegate/lib/service"
	"github.com/bureau-foundation/facegate/lib/testutil"
	"github.com/bureau-foundation/facegate/lib/verify"
)

// testDaemon is an in-process daemon on a temporary socket.
type testDaemon struct {
	socket string
	store  *identity.Memory
	sink   *audit.Memory
	kiosk  *gate.LogKiosk
}

func startDaemon(t *testing.T) *testDaemon {
	t.Helper()
	d := &testDaemon{
		socket: filepath.Join(testutil.SocketDir(t), "facegate.sock"),
		store:  identity.NewMemory(nil),
		sink:   audit.NewMemory(nil),
		kiosk:  gate.NewLogKiosk(nil),
	}
	verifier, err := verify.New(verify.Config{Store: d.store, Sink: d.sink})
	if err != nil {
		t.Fatalf("verify.New: %v", err)
	}
	core, err := faceauth.New(faceauth.Config{
		Verifier: verifier,
		Gate:     gate.New(gate.Config{Kiosk: d.kiosk}),
		Sink:     d.sink,
	})
	if err != nil {
		t.Fatalf("faceauth.New: %v", err)
	}

	server := service.NewSocketServer(d.socket, nil)
	core.RegisterActions(server)
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "socket shutdown"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "socket ready")
	return d
}

// invocation is one CLI run with captured output.
type invocation struct {
	stdout *bytes.Buffer
	err    error
}

// execute runs the CLI with args against socket, feeding stdin.
func execute(t *testing.T, socket, stdin string, args ...string) invocation {
	t.Helper()
	stdout := &bytes.Buffer{}
	a := &app{
		stdin:     strings.NewReader(stdin),
		stdout:    stdout,
		stderr:    &bytes.Buffer{},
		clock:     clock.Real(),
		newLogger: func(slog.Level) *slog.Logger { return slog.New(slog.DiscardHandler) },
	}
	if socket != "" {
		args = append(args, "--socket", socket)
	}
	err := a.root().Execute(context.Background(), args)
	return invocation{stdout: stdout, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *process.ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	return -1
}

func descriptorJSON(t *testing.T, values []float64) string {
	t.Helper()
	data, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal descriptor: %v", err)
	}
	return string(data)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestEnrollAndVerify(t *testing.T) {
	d := startDaemon(t)
	reference := writeFile(t, "alice.json", descriptorJSON(t, testutil.Zero()))

	run := execute(t, d.socket, "", "enroll", "alice", reference)
	if run.err != nil {
		t.Fatalf("enroll: %v", run.err)
	}
	if !strings.Contains(run.stdout.String(), "Identity enrolled successfully.") {
		t.Errorf("enroll output = %q", run.stdout)
	}

	run = execute(t, d.socket, descriptorJSON(t, testutil.Shifted(testutil.Zero(), 0, 0.2)), "verify", "alice", "--window", "w1")
	if run.err != nil {
		t.Fatalf("verify match: %v", run.err)
	}
	output := run.stdout.String()
	for _, want := range []string{"alice verified", "MATCH", "w1", "0.2000"} {
		if !strings.Contains(output, want) {
			t.Errorf("verify output missing %q:\n%s", want, output)
		}
	}

	run = execute(t, d.socket, descriptorJSON(t, testutil.Descriptor(7)), "verify", "alice")
	if exitCode(run.err) != 1 {
		t.Fatalf("verify mismatch: err = %v, want exit 1", run.err)
	}
	if !strings.Contains(run.stdout.String(), "alice did not match") {
		t.Errorf("mismatch output = %q", run.stdout)
	}

	if got := d.sink.Len(); got != 2 {
		t.Errorf("audit records = %d, want one per verify", got)
	}
}

func TestVerifyJSON(t *testing.T) {
	d := startDaemon(t)
	if run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "enroll", "alice"); run.err != nil {
		t.Fatalf("enroll: %v", run.err)
	}

	run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "verify", "alice", "--json")
	if run.err != nil {
		t.Fatalf("verify: %v", run.err)
	}
	var response faceauth.VerifyResponse
	if err := json.Unmarshal(run.stdout.Bytes(), &response); err != nil {
		t.Fatalf("decoding %q: %v", run.stdout, err)
	}
	if !response.Success || !response.Allow || response.Reason != string(verify.ReasonMatch) {
		t.Errorf("response = %+v", response)
	}
	if response.Distance == nil || *response.Distance != 0 || response.Confidence == nil || *response.Confidence != 1 {
		t.Errorf("distance/confidence = %v/%v, want 0/1", response.Distance, response.Confidence)
	}
}

func TestVerifyUnenrolled(t *testing.T) {
	d := startDaemon(t)
	run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "verify", "ghost")
	if exitCode(run.err) != 1 {
		t.Fatalf("err = %v, want exit 1", run.err)
	}
	if !strings.Contains(run.stdout.String(), "No valid enrolled identity found for this user.") {
		t.Errorf("output = %q", run.stdout)
	}
}

func TestEnrollReadsCommentedStdin(t *testing.T) {
	d := startDaemon(t)
	values := descriptorJSON(t, testutil.Descriptor(3))
	stdin := "// captured at the front desk\n" + strings.TrimSuffix(values, "]") + ",]\n"

	if run := execute(t, d.socket, stdin, "enroll", "alice"); run.err != nil {
		t.Fatalf("enroll: %v", run.err)
	}
	record, err := d.store.Load(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if record.Descriptor[5] != testutil.Descriptor(3)[5] {
		t.Errorf("stored descriptor differs from input")
	}
}

func TestEnrollRejectsShortDescriptor(t *testing.T) {
	d := startDaemon(t)
	run := execute(t, d.socket, "[0.1, 0.2, 0.3]", "enroll", "alice")
	if exitCode(run.err) != 1 {
		t.Fatalf("err = %v, want exit 1", run.err)
	}
	if !strings.Contains(run.stdout.String(), "128D") {
		t.Errorf("output = %q", run.stdout)
	}

	run = execute(t, d.socket, `{"not": "an array"}`, "enroll", "alice")
	if run.err == nil || !strings.Contains(run.err.Error(), "JSON array of numbers") {
		t.Errorf("object input: err = %v", run.err)
	}
}

func TestKioskRequiresVerification(t *testing.T) {
	d := startDaemon(t)
	if run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "enroll", "alice"); run.err != nil {
		t.Fatalf("enroll: %v", run.err)
	}

	run := execute(t, d.socket, "", "kiosk", "on", "--window", "w1")
	if exitCode(run.err) != 1 {
		t.Fatalf("kiosk before verify: err = %v, want exit 1", run.err)
	}
	if !strings.Contains(run.stdout.String(), "Kiosk mode requires successful authentication.") {
		t.Errorf("output = %q", run.stdout)
	}

	if run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "verify", "alice", "--window", "w1"); run.err != nil {
		t.Fatalf("verify: %v", run.err)
	}
	if run := execute(t, d.socket, "", "kiosk", "on", "--window", "w1"); run.err != nil {
		t.Fatalf("kiosk on: %v", run.err)
	}
	if !d.kiosk.Enabled("w1") {
		t.Error("kiosk not enabled for w1")
	}

	run = execute(t, d.socket, "", "status", "--json")
	if run.err != nil {
		t.Fatalf("status: %v", run.err)
	}
	var status faceauth.StatusResponse
	if err := json.Unmarshal(run.stdout.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.AuthenticatedWindows != 1 || status.PrivilegedWindows != 1 || status.MaxAttempts != 3 || status.DescriptorLength != 128 {
		t.Errorf("status = %+v", status)
	}
	if status.Window != nil {
		t.Errorf("status without --window reported %+v", status.Window)
	}

	run = execute(t, d.socket, "", "status", "--window", "w1", "--json")
	if run.err != nil {
		t.Fatalf("status --window: %v", run.err)
	}
	status = faceauth.StatusResponse{}
	if err := json.Unmarshal(run.stdout.Bytes(), &status); err != nil {
		t.Fatalf("decoding window status: %v", err)
	}
	if status.Window == nil || !status.Window.Authenticated || !status.Window.Privileged || status.Window.AuthenticatedAt == nil {
		t.Errorf("window status = %+v", status.Window)
	}

	if run := execute(t, d.socket, "", "kiosk", "off", "--window", "w1"); run.err != nil {
		t.Fatalf("kiosk off: %v", run.err)
	}
	if d.kiosk.Enabled("w1") {
		t.Error("kiosk still enabled after off")
	}
}

func TestLockRecordsLockout(t *testing.T) {
	d := startDaemon(t)
	run := execute(t, d.socket, "", "lock", "--window", "w1", "--user", "alice")
	if run.err != nil {
		t.Fatalf("lock: %v", run.err)
	}
	records := d.sink.Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Outcome != audit.OutcomeLockout || records[0].UserID != "alice" ||
		records[0].Reason != string(verify.ReasonMaxAttempts) || records[0].Window != "w1" {
		t.Errorf("lockout record = %+v", records[0])
	}
}

func TestLogAttempt(t *testing.T) {
	d := startDaemon(t)
	run := execute(t, d.socket, "", "log", "--user", "bob", "--outcome", "failure", "--reason", "MISMATCH", "--distance", "0.71")
	if run.err != nil {
		t.Fatalf("log: %v", run.err)
	}
	records := d.sink.Records()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	record := records[0]
	if record.Distance == nil || *record.Distance != 0.71 {
		t.Errorf("distance = %v, want 0.71", record.Distance)
	}
	if record.Threshold != nil || record.Confidence != nil {
		t.Errorf("unset numbers were recorded: %+v", record)
	}

	run = execute(t, d.socket, "", "log", "--user", "bob", "--outcome", "maybe")
	if exitCode(run.err) != 1 {
		t.Errorf("invalid outcome: err = %v, want exit 1", run.err)
	}
	if d.sink.Len() != 1 {
		t.Errorf("invalid outcome was recorded")
	}
}

func TestCloseWindow(t *testing.T) {
	d := startDaemon(t)
	if run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "enroll", "alice"); run.err != nil {
		t.Fatalf("enroll: %v", run.err)
	}
	if run := execute(t, d.socket, descriptorJSON(t, testutil.Zero()), "verify", "alice", "--window", "w1"); run.err != nil {
		t.Fatalf("verify: %v", run.err)
	}
	if run := execute(t, d.socket, "", "close", "w1"); run.err != nil {
		t.Fatalf("close: %v", run.err)
	}
	if run := execute(t, d.socket, "", "kiosk", "on", "--window", "w1"); exitCode(run.err) != 1 {
		t.Errorf("kiosk on closed window: err = %v, want exit 1", run.err)
	}
}

func TestUsageErrors(t *testing.T) {
	d := startDaemon(t)
	tests := []struct {
		name string
		args []string
	}{
		{"kiosk without state", []string{"kiosk", "--window", "w1"}},
		{"kiosk bad state", []string{"kiosk", "maybe", "--window", "w1"}},
		{"kiosk without window", []string{"kiosk", "on"}},
		{"verify without user", []string{"verify"}},
		{"scan without frames", []string{"scan", "alice"}},
		{"lock with argument", []string{"lock", "alice"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			run := execute(t, d.socket, "", test.args...)
			if exitCode(run.err) != 2 {
				t.Errorf("err = %v, want exit 2", run.err)
			}
		})
	}
}

func TestDaemonUnreachable(t *testing.T) {
	socket := filepath.Join(testutil.SocketDir(t), "missing.sock")
	run := execute(t, socket, "", "status")
	if run.err == nil || exitCode(run.err) != -1 {
		t.Errorf("err = %v, want a connection error", run.err)
	}
}

func TestSocketPathResolution(t *testing.T) {
	t.Setenv("FACEGATE_SOCKET", "")
	t.Setenv("FACEGATE_CONFIG", "")

	a := &app{socket: "/run/explicit.sock"}
	if path, _ := a.socketPath(); path != "/run/explicit.sock" {
		t.Errorf("--socket: %q", path)
	}

	t.Setenv("FACEGATE_SOCKET", "/run/env.sock")
	a = &app{}
	if path, _ := a.socketPath(); path != "/run/env.sock" {
		t.Errorf("FACEGATE_SOCKET: %q", path)
	}

	t.Setenv("FACEGATE_SOCKET", "")
	state := t.TempDir()
	configPath := writeFile(t, "facegate.yaml", "paths:\n  state: "+state+"\n")
	a = &app{configPath: configPath}
	path, err := a.socketPath()
	if err != nil {
		t.Fatalf("socketPath: %v", err)
	}
	if path != filepath.Join(state, "facegate.sock") {
		t.Errorf("from config: %q", path)
	}
}

func TestVersion(t *testing.T) {
	run := execute(t, "", "", "version")
	if run.err != nil {
		t.Fatalf("version: %v", run.err)
	}
	if !strings.HasPrefix(run.stdout.String(), "facegate ") {
		t.Errorf("output = %q", run.stdout)
	}
}
