// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeStandsStill(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}
	if got := c.Since(start); got != 0 {
		t.Errorf("Since(start) = %v, want 0", got)
	}
}

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := Fake(start)

	c.Advance(90 * time.Second)

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since(start) = %v, want 90s", got)
	}
	c.Set(start)
	if got := c.Now(); !got.Equal(start) {
		t.Errorf("after Set, Now() = %v, want %v", got, start)
	}
}

func TestFakeAdvanceNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Advance(-1) did not panic")
		}
	}()
	Fake(time.Time{}).Advance(-1)
}

func TestOrReal(t *testing.T) {
	if OrReal(nil) == nil {
		t.Fatal("OrReal(nil) returned nil")
	}
	fake := Fake(time.Time{})
	if OrReal(fake) != Clock(fake) {
		t.Error("OrReal(fake) did not return the fake")
	}
}
