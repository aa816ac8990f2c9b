// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for dagfront packages.
//
// [WriteTree] and [ReadTree] build and capture directory trees as
// path→content maps, so a test can state a whole layout in one literal
// and compare a tree before and after an operation with
// reflect.DeepEqual. Directories appear as keys ending in "/";
// symlinks appear as "-> target".
//
// [RequireReceive] and [RequireClosed] bound every channel wait in a
// test with a timeout, so a stuck worker fails the test instead of
// hanging it.
//
// All helpers call t.Fatalf on failure rather than returning errors.
//
// This package has no dagfront-internal dependencies.
package testutil
