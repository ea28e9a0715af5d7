// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_NowIsStable(t *testing.T) {
	clk := Fake(testEpoch)
	if got := clk.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now() = %v, want %v", got, testEpoch)
	}
	if got := clk.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now() moved without Advance: %v", got)
	}
}

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	clk := Fake(testEpoch)
	ch := clk.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	clk.Advance(10 * time.Second)
	select {
	case fired := <-ch:
		want := testEpoch.Add(10 * time.Second)
		if !fired.Equal(want) {
			t.Errorf("fire time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFake_AfterNonPositiveFiresImmediately(t *testing.T) {
	clk := Fake(testEpoch)
	select {
	case <-clk.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFake_AdvanceFiresOnlyElapsedWaiters(t *testing.T) {
	clk := Fake(testEpoch)
	short := clk.After(5 * time.Second)
	long := clk.After(30 * time.Second)

	clk.Advance(10 * time.Second)

	select {
	case <-short:
	default:
		t.Error("short waiter did not fire")
	}
	select {
	case <-long:
		t.Error("long waiter fired early")
	default:
	}
	if got := clk.WaiterCount(); got != 1 {
		t.Errorf("WaiterCount = %d, want 1", got)
	}
}

func TestFake_SleepBlocksUntilAdvance(t *testing.T) {
	clk := Fake(testEpoch)
	done := make(chan struct{})

	go func() {
		clk.Sleep(time.Minute)
		close(done)
	}()

	clk.WaitForWaiters(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	clk.Advance(time.Minute)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}
