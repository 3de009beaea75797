// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/facegate/lib/descriptor"
)

// ErrNotFound is returned by Load when the user has no enrolled record.
var ErrNotFound = errors.New("identity: not enrolled")

// Record is one enrolled identity.
type Record struct {
	UserID     string
	Descriptor []float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store loads and saves enrolled descriptors.
type Store interface {
	// Load returns the record for userID, or ErrNotFound.
	Load(ctx context.Context, userID string) (Record, error)

	// Save creates the record or replaces its descriptor and
	// UpdatedAt.
	Save(ctx context.Context, userID string, descriptor []float64) error
}

func (r Record) clone() Record {
	r.Descriptor = descriptor.Clone(r.Descriptor)
	return r
}
