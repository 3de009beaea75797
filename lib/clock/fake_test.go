// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	fake := Fake(epoch)
	fake.Advance(90 * time.Second)
	if got, want := fake.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
}

func TestFakeAfter(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(time.Second)

	fake.Advance(500 * time.Millisecond)
	select {
	case <-channel:
		t.Fatal("After fired early")
	default:
	}

	fake.Advance(500 * time.Millisecond)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after firing, want 0", fake.PendingCount())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	fake := Fake(epoch)
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) should deliver immediately")
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	fake := Fake(epoch)
	var calls atomic.Int32
	timer := fake.AfterFunc(time.Second, func() { calls.Add(1) })

	if !timer.Stop() {
		t.Fatal("Stop() on a pending timer returned false")
	}
	if timer.Stop() {
		t.Fatal("second Stop() returned true")
	}
	fake.Advance(2 * time.Second)
	if calls.Load() != 0 {
		t.Fatalf("stopped AfterFunc ran %d times", calls.Load())
	}
}

func TestFakeAfterFuncRunsInOrder(t *testing.T) {
	fake := Fake(epoch)
	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	fake.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("callback order = %v, want [1 2 3]", order)
	}
}

func TestFakeTickerPeriodic(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(600 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		fake.Advance(600 * time.Millisecond)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d not delivered", i)
		}
	}
}

func TestFakeTickerDropsWhenFull(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	fake.Advance(5 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker buffered more than one tick")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()
	if fake.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d after Stop, want 0", fake.PendingCount())
	}
	fake.Advance(3 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker delivered a tick")
	default:
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(epoch)
	registered := make(chan struct{})
	go func() {
		<-fake.After(time.Second)
		close(registered)
	}()

	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	select {
	case <-registered:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("goroutine did not observe the advanced clock")
	}
}

func TestFakeNewTickerPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}
