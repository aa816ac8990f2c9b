// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dagfront/dagfront/lib/dirmove"
	"github.com/dagfront/dagfront/lib/workspace"
)

// occupancy tracks paths the plan's earlier steps fill (true) or
// vacate (false), layered over the real filesystem.
type occupancy map[string]bool

func (o occupancy) exists(path string) bool {
	if occupied, ok := o.lookup(path); ok {
		return occupied
	}
	_, err := os.Lstat(path)
	return err == nil
}

// lookup consults the overlay for path or its nearest recorded
// ancestor. A vacated ancestor means everything under it is gone.
func (o occupancy) lookup(path string) (bool, bool) {
	if occupied, ok := o[path]; ok {
		return occupied, true
	}
	for dir := filepath.Dir(path); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if occupied, ok := o[dir]; ok && !occupied {
			return false, true
		}
	}
	return false, false
}

func (o occupancy) checkDestination(path string) error {
	if occupied, ok := o.lookup(path); ok {
		if occupied {
			return fmt.Errorf("%w: %s", ErrPathCollision, path)
		}
		return nil
	}
	return dirmove.CheckDestination(path)
}

// Preflight checks every destination the plan writes to, taking into
// account what earlier steps move away. It reads the filesystem but
// changes nothing.
func Preflight(plan *Plan) error {
	overlay := make(occupancy)
	for index, step := range plan.Steps {
		var err error
		switch step := step.(type) {
		case MoveDirectory:
			err = overlay.move(step)
		case InvokeVCS:
			if step.Creates != "" {
				err = overlay.checkDestination(step.Creates)
				overlay[step.Creates] = true
			}
		case PatchStoreRecord:
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", index+1, step, err)
		}
	}
	return nil
}

func (o occupancy) move(step MoveDirectory) error {
	if !o.exists(step.From) {
		if step.SkipMissing {
			return nil
		}
		return fmt.Errorf("%s does not exist", step.From)
	}
	if !step.Contents {
		if err := o.checkDestination(step.To); err != nil {
			return err
		}
		o[step.From] = false
		o[step.To] = true
		return nil
	}

	children, err := os.ReadDir(step.From)
	if err != nil {
		return fmt.Errorf("listing %s: %w", step.From, err)
	}
	skip := slices.Clone(step.Exclude)
	if filepath.Dir(step.To) == step.From {
		if err := o.checkDestination(step.To); err != nil {
			return err
		}
		skip = append(skip, filepath.Base(step.To))
	}
	leavingParent := filepath.Dir(step.From) == step.To
	for _, child := range children {
		name := child.Name()
		if slices.Contains(skip, name) {
			continue
		}
		destination := filepath.Join(step.To, name)
		if !(leavingParent && name == filepath.Base(step.From)) {
			if err := o.checkDestination(destination); err != nil {
				return err
			}
		}
		o[filepath.Join(step.From, name)] = false
		o[destination] = true
	}
	o[step.To] = true
	return nil
}

// driftKinds are the mismatches that make a snapshot untrustworthy.
var driftKinds = []workspace.MismatchKind{
	workspace.MissingRecord,
	workspace.RecordPath,
	workspace.MissingDirectory,
}

// checkDrift compares the snapshot with the store and the filesystem.
// A forgotten workspace's directory may already be gone; orphan
// records are reported as warnings only.
func checkDrift(snapshot workspace.Snapshot, store workspace.RecordSource, probe workspace.Probe, intent Intent) ([]string, error) {
	mismatches, err := workspace.Check(snapshot, store, probe)
	if err != nil {
		return nil, err
	}
	var drift []error
	var warnings []string
	for _, mismatch := range mismatches {
		if forget, ok := intent.(ForgetWorkspace); ok && mismatch.Workspace == forget.Name && mismatch.Kind == workspace.MissingDirectory {
			continue
		}
		if slices.Contains(driftKinds, mismatch.Kind) {
			drift = append(drift, errors.New(mismatch.String()))
			continue
		}
		warnings = append(warnings, mismatch.String())
	}
	if len(drift) > 0 {
		return warnings, fmt.Errorf("%w: %w", ErrTopologyDrift, errors.Join(drift...))
	}
	return warnings, nil
}
