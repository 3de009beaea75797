// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"sync"

	"github.com/bureau-foundation/facegate/lib/clock"
)

// Memory is an in-process Sink.
type Memory struct {
	clock clock.Clock

	mu      sync.Mutex
	records []Record
	err     error
}

// NewMemory returns an empty Memory sink. A nil clock uses the wall
// clock.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Memory{clock: clk}
}

// Append stores a copy of record, or returns the error set by Fail.
func (m *Memory) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	stamp(&record, m.clock)
	m.records = append(m.records, record.clone())
	return nil
}

// Fail makes every later Append return err. Fail(nil) restores
// normal operation.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Records returns a copy of everything appended so far, oldest first.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]Record, len(m.records))
	for i, record := range m.records {
		records[i] = record.clone()
	}
	return records
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
