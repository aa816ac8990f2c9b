// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/dagfront/dagfront/lib/jj"
)

// Job is one queued external invocation.
type Job struct {
	// Args are the jj arguments after the injected --repository flag
	// and global arguments (e.g. "workspace", "add", ...).
	Args []string

	// Dir is the workspace the command targets and runs in.
	Dir string

	// Capture keeps standard output for the caller. When false only
	// the exit status and standard error are kept.
	Capture bool

	// Label is a short human description for transcripts and logs.
	// Defaults to the command line.
	Label string
}

// String returns the command line as a user would type it.
func (j Job) String() string {
	return "jj " + strings.Join(j.Args, " ")
}

func (j Job) label() string {
	if j.Label != "" {
		return j.Label
	}
	return j.String()
}

// Result is the outcome of one finished job.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ErrCommandFailed matches every [*CommandError] via errors.Is.
var ErrCommandFailed = errors.New("command failed")

// CommandError reports a job that ran and exited non-zero.
type CommandError struct {
	Job      Job
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s in %s: exit status %d", e.Job, e.Job.Dir, e.ExitCode)
	}
	return fmt.Sprintf("%s in %s: exit status %d: %s", e.Job, e.Job.Dir, e.ExitCode, stderr)
}

// Is makes errors.Is(err, ErrCommandFailed) hold for any CommandError.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// Runner executes one process. A non-zero exit is reported in
// Result.ExitCode with a nil error; the error return is reserved for
// failing to run the process at all.
type Runner interface {
	Run(ctx context.Context, job Job) (Result, error)
}

// Executor runs a job to completion and maps a non-zero exit to a
// [*CommandError]. Both [*Pipeline] and [*Session] implement it.
type Executor interface {
	Run(ctx context.Context, job Job) (Result, error)
}

// ExecRunner runs the real jj binary.
type ExecRunner struct {
	// Binary is the jj executable.
	Binary string

	// GlobalArgs are inserted after the --repository flag.
	GlobalArgs []string
}

// Run starts the process and waits for it.
func (r ExecRunner) Run(ctx context.Context, job Job) (Result, error) {
	repository := jj.NewRepository(r.Binary, job.Dir, r.GlobalArgs)
	command := repository.Command(ctx, job.Args...)

	var stdout, stderr bytes.Buffer
	if job.Capture {
		command.Stdout = &stdout
	} else {
		command.Stdout = io.Discard
	}
	command.Stderr = &stderr

	err := command.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			result.ExitCode = exitError.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("starting %s: %w", job, err)
	}
	return result, nil
}
