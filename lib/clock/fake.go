// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock. It is safe for concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order. A callback must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*pendingTimer
	changed *sync.Cond
}

// pendingTimer is one registered After, AfterFunc, or ticker.
type pendingTimer struct {
	due      time.Time
	period   time.Duration // non-zero for tickers
	channel  chan time.Time
	callback func()
	done     bool
}

// Fake returns a FakeClock frozen at start.
func Fake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot timer.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	channel := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.registerLocked(&pendingTimer{due: c.now.Add(d), channel: channel})
	return channel
}

// AfterFunc registers f to run during the Advance that crosses d. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}
	c.mu.Lock()
	entry := &pendingTimer{due: c.now.Add(d), callback: f}
	c.registerLocked(entry)
	c.mu.Unlock()
	return &Timer{stop: func() bool { return c.cancel(entry) }}
}

// NewTicker registers a periodic timer.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}
	channel := make(chan time.Time, 1)
	c.mu.Lock()
	entry := &pendingTimer{due: c.now.Add(d), period: d, channel: channel}
	c.registerLocked(entry)
	c.mu.Unlock()
	return &Ticker{C: channel, stop: func() { c.cancel(entry) }}
}

// Advance moves time forward by d and fires everything that came due,
// earliest first. A ticker whose period fits several times into d fires
// once per period; ticks that do not fit in its buffer are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, entry := range due {
			if entry.callback != nil {
				entry.callback()
				continue
			}
			select {
			case entry.channel <- target:
			default:
			}
		}
	}
}

// WaitForTimers blocks until at least n timers or tickers are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// PendingCount reports how many timers and tickers are pending.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *FakeClock) registerLocked(entry *pendingTimer) {
	c.pending = append(c.pending, entry)
	c.changed.Broadcast()
}

// cancel removes entry from the pending list. Returns true if it was
// still pending.
func (c *FakeClock) cancel(entry *pendingTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, candidate := range c.pending {
		if candidate == entry {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			entry.done = true
			return true
		}
	}
	return false
}

// takeDue removes one-shot entries that are due, reschedules due
// tickers by one period, and returns everything that should fire.
func (c *FakeClock) takeDue(target time.Time) []*pendingTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []*pendingTimer
	kept := c.pending[:0]
	for _, entry := range c.pending {
		if entry.due.After(target) {
			kept = append(kept, entry)
			continue
		}
		due = append(due, &pendingTimer{
			due:      entry.due,
			channel:  entry.channel,
			callback: entry.callback,
		})
		if entry.period > 0 {
			entry.due = entry.due.Add(entry.period)
			kept = append(kept, entry)
		} else {
			entry.done = true
		}
	}
	c.pending = kept

	sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	return due
}
