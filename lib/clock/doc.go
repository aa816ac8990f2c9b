// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Production code holds a Clock instead of calling time.Now directly.
// Real() returns the standard library behavior; Fake() returns a clock
// that stands still until the test moves it, so archive directory names
// and job durations are deterministic under test:
//
//	c := clock.Fake(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
//	planner := topology.NewPlanner(topology.Options{Clock: c, ...})
//	c.Advance(2 * time.Second)
package clock
