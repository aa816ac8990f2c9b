// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t. Equivalent to
	// Now().Sub(t).
	Since(t time.Time) time.Duration
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

// OrReal returns c, or Real() when c is nil. Constructors use it so
// that a zero Options value works in production.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real()
	}
	return c
}
