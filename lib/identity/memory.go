// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"sync"

	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/descriptor"
)

// Memory is a Store held in a map.
type Memory struct {
	clock clock.Clock

	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty store. A nil clock uses the wall clock.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Memory{clock: clk, records: make(map[string]Record)}
}

func (m *Memory) Load(ctx context.Context, userID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record.clone(), nil
}

func (m *Memory) Save(ctx context.Context, userID string, values []float64) error {
	now := m.clock.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	record, exists := m.records[userID]
	if !exists {
		record = Record{UserID: userID, CreatedAt: now}
	}
	record.Descriptor = descriptor.Clone(values)
	record.UpdatedAt = now
	m.records[userID] = record
	return nil
}
