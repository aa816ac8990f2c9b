// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/dagfront/dagfront/lib/dirmove"
	"github.com/dagfront/dagfront/lib/jj"
	"github.com/dagfront/dagfront/lib/opstore"
	"github.com/dagfront/dagfront/lib/pipeline"
	"github.com/dagfront/dagfront/lib/topology"
	"github.com/dagfront/dagfront/lib/workspace"
)

// ErrorCategory classifies command errors so scripts can decide
// whether to fix input, inspect the repository, or retry.
type ErrorCategory string

const (
	// CategoryValidation: the caller provided invalid input.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a referenced workspace or repository does not
	// exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict: the request conflicts with the current state of
	// the repository or filesystem. Nothing was changed.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: jj could not be run or failed; the same
	// request may succeed later.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal: an unexpected failure, or a failure that left
	// state needing manual inspection.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error. It wraps the underlying error so
// errors.Is and errors.As still reach the engine's sentinels.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is an optional next step appended to the message.
	Hint string
}

func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets Hint and returns the receiver.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a ToolError categorized by the engine sentinel
// it carries. Errors that are already ToolErrors, ExitErrors, and nil
// are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return err
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return err
	}

	// A plan that could not be fully rolled back needs a human before
	// anything else.
	var planError *topology.PlanError
	if errors.As(err, &planError) && !planError.RolledBack() {
		return (&ToolError{Category: CategoryInternal, Err: err}).
			WithHint("The plan was only partly rolled back. Run 'dagfront workspace check' and inspect the listed paths.")
	}

	switch {
	case errors.Is(err, topology.ErrInvalidName):
		return &ToolError{Category: CategoryValidation, Err: err}

	case errors.Is(err, topology.ErrWorkspaceNotFound),
		errors.Is(err, opstore.ErrRecordNotFound):
		return &ToolError{Category: CategoryNotFound, Err: err}

	case errors.Is(err, jj.ErrNotWorkspace):
		return (&ToolError{Category: CategoryNotFound, Err: err}).
			WithHint("Run dagfront inside a jj workspace or pass --repository.")

	case errors.Is(err, topology.ErrTopologyDrift):
		return (&ToolError{Category: CategoryConflict, Err: err}).
			WithHint("Run 'dagfront workspace check' to see the mismatches.")

	case errors.Is(err, topology.ErrForeignLayout):
		return (&ToolError{Category: CategoryConflict, Err: err}).
			WithHint("Workspaces must either be a single workspace at the project root or all live directly under it.")

	case errors.Is(err, topology.ErrWorkspaceExists),
		errors.Is(err, topology.ErrLastWorkspace),
		errors.Is(err, topology.ErrRepoHostMove),
		errors.Is(err, dirmove.ErrPathCollision),
		errors.Is(err, opstore.ErrStoreChanged):
		return &ToolError{Category: CategoryConflict, Err: err}

	case errors.Is(err, topology.ErrRenameSoleWorkspace):
		return (&ToolError{Category: CategoryConflict, Err: err}).
			WithHint("Add a second workspace first; the only workspace keeps the default name.")

	case errors.Is(err, opstore.ErrStoreCorrupt),
		errors.Is(err, dirmove.ErrMoveVerificationFailed):
		return &ToolError{Category: CategoryInternal, Err: err}

	case errors.Is(err, workspace.ErrRegistryUnavailable),
		errors.Is(err, pipeline.ErrCommandFailed),
		errors.Is(err, pipeline.ErrClosed):
		return &ToolError{Category: CategoryTransient, Err: err}
	}
	return &ToolError{Category: CategoryInternal, Err: err}
}
