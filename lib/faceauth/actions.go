// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package faceauth

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/facegate/lib/codec"
	"github.com/bureau-foundation/facegate/lib/service"
)

// descriptorRequest carries a descriptor as raw CBOR so that a value
// of the wrong shape reaches the validator as "no descriptor" instead
// of failing the whole request.
type descriptorRequest struct {
	Window     string           `cbor:"window"`
	UserID     string           `cbor:"userId"`
	Descriptor codec.RawMessage `cbor:"descriptor"`
}

func (r descriptorRequest) values() []float64 {
	var values []float64
	if len(r.Descriptor) == 0 || codec.Unmarshal(r.Descriptor, &values) != nil {
		return nil
	}
	return values
}

type lockRequest struct {
	Window string `cbor:"window"`
	UserID string `cbor:"userId"`
	Reason string `cbor:"reason"`
}

type privilegedModeRequest struct {
	Window string `cbor:"window"`
	Enable bool   `cbor:"enable"`
}

type windowRequest struct {
	Window string `cbor:"window"`
}

// RegisterActions binds every operation to a socket action:
// enroll-identity, verify-identity, log-auth-attempt, lock-system,
// set-privileged-mode, close-window, and status. A status request
// that names a window also reports that window.
//
// The window in each request is chosen by the caller and acts as the
// window's credential, so it must be unguessable. The facegate CLI
// uses a random UUID per session. An empty window on lock-system locks
// every window, which only local users with access to the socket
// (mode 0660) can request.
func (c *Core) RegisterActions(server *service.SocketServer) {
	server.Handle("enroll-identity", func(ctx context.Context, raw []byte) (any, error) {
		var request descriptorRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		return c.EnrollIdentity(ctx, request.UserID, request.values()), nil
	})

	server.Handle("verify-identity", func(ctx context.Context, raw []byte) (any, error) {
		var request descriptorRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		return c.VerifyIdentity(ctx, request.Window, request.UserID, request.values()), nil
	})

	server.Handle("log-auth-attempt", func(ctx context.Context, raw []byte) (any, error) {
		var request AttemptRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		return c.LogAuthAttempt(ctx, request), nil
	})

	server.Handle("lock-system", func(ctx context.Context, raw []byte) (any, error) {
		var request lockRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		return c.LockSystem(ctx, request.Window, request.UserID, request.Reason), nil
	})

	server.Handle("set-privileged-mode", func(ctx context.Context, raw []byte) (any, error) {
		var request privilegedModeRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		return c.SetPrivilegedMode(ctx, request.Window, request.Enable), nil
	})

	server.Handle("close-window", func(ctx context.Context, raw []byte) (any, error) {
		var request windowRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		return c.CloseWindow(ctx, request.Window), nil
	})

	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		var request windowRequest
		if err := decode(raw, &request); err != nil {
			return nil, err
		}
		status := c.Status()
		if request.Window != "" {
			status.Window = c.WindowStatus(request.Window)
		}
		return status, nil
	})
}

func decode(raw []byte, target any) error {
	if err := codec.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}
