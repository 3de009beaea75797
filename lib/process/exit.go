// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// ExitError carries a specific exit status out of run(). The CLI uses
// it so that a denied verification exits 1 and a usage error exits 2.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Fatal writes "error: err" to stderr and exits. The status is taken
// from an ExitError in the chain, or 1 otherwise. An ExitError without
// a wrapped error exits silently.
func Fatal(err error) {
	code := 1
	var exitError *ExitError
	if errors.As(err, &exitError) {
		code = exitError.Code
		if exitError.Err == nil {
			os.Exit(code)
		}
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}
