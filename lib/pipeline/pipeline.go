// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dagfront/dagfront/lib/clock"
)

// ErrClosed is returned for items submitted after Close, and for items
// still queued when Close is called.
var ErrClosed = errors.New("command pipeline closed")

// defaultTranscriptLimit bounds the transcript when Options leaves it
// unset.
const defaultTranscriptLimit = 200

// Options configures a Pipeline.
type Options struct {
	// Logger receives one record per job. Nil discards.
	Logger *slog.Logger

	// Clock measures job durations. Nil means the real clock.
	Clock clock.Clock

	// TranscriptLimit is the number of finished jobs retained for
	// Transcript. Zero means 200.
	TranscriptLimit int
}

// Pipeline is the strictly sequential execution queue. Create with
// New, call Start once, and Close when done.
type Pipeline struct {
	runner Runner
	logger *slog.Logger
	clock  clock.Clock

	mu      sync.Mutex
	wake    *sync.Cond
	queue   []*item
	closed  bool
	started bool
	stopped chan struct{}

	transcriptMu    sync.Mutex
	transcript      []Entry
	transcriptLimit int
	sequence        uint64
}

// item is one queue element: a single job or an exclusive section.
type item struct {
	ctx context.Context

	// detach runs the body with cancellation detached from ctx once
	// the item has been dequeued.
	detach bool

	body func(ctx context.Context, session *Session) error

	// running is set under Pipeline.mu when the worker dequeues the
	// item; a waiter whose context is cancelled may only withdraw
	// items that are not yet running.
	running bool

	done chan error
}

// New creates a Pipeline that executes jobs through runner.
func New(runner Runner, options Options) *Pipeline {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := options.TranscriptLimit
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}
	p := &Pipeline{
		runner:          runner,
		logger:          logger,
		clock:           clock.OrReal(options.Clock),
		stopped:         make(chan struct{}),
		transcriptLimit: limit,
	}
	p.wake = sync.NewCond(&p.mu)
	return p
}

// Start launches the worker goroutine. Calling Start more than once
// has no further effect.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	go p.worker()
}

// Close stops accepting items, fails every item that has not started
// with ErrClosed, waits for the running item (if any) to finish, and
// stops the worker.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.stopped
		return
	}
	p.closed = true
	pending := p.queue
	p.queue = nil
	started := p.started
	p.wake.Broadcast()
	p.mu.Unlock()

	for _, queued := range pending {
		queued.done <- ErrClosed
	}
	if started {
		<-p.stopped
	} else {
		close(p.stopped)
	}
}

// Run enqueues job and waits for it. A non-zero exit returns the
// populated Result together with a *CommandError.
func (p *Pipeline) Run(ctx context.Context, job Job) (Result, error) {
	return p.Submit(ctx, job).Wait()
}

// Pending is a job that has been enqueued but possibly not finished.
type Pending struct {
	done   chan struct{}
	result Result
	err    error
}

// Wait blocks until the job finishes, is withdrawn, or fails.
func (pending *Pending) Wait() (Result, error) {
	<-pending.done
	return pending.result, pending.err
}

// Submit enqueues job and returns immediately. The queue position is
// fixed when Submit returns, so successive Submit calls from one
// goroutine run in call order.
func (p *Pipeline) Submit(ctx context.Context, job Job) *Pending {
	pending := &Pending{done: make(chan struct{})}
	queued := &item{
		ctx: ctx,
		body: func(ctx context.Context, session *Session) error {
			var err error
			pending.result, err = session.Run(ctx, job)
			return err
		},
		done: make(chan error, 1),
	}
	if err := p.push(queued); err != nil {
		pending.err = err
		close(pending.done)
		return pending
	}
	go func() {
		pending.err = p.wait(queued)
		close(pending.done)
	}()
	return pending
}

// Exclusive enqueues fn as a single item and waits for it. While fn
// runs no other item is dequeued; jobs issued through the Session run
// inline on the worker. If ctx is cancelled before fn starts, fn never
// runs and ctx.Err() is returned. Once fn starts, it receives a
// context detached from ctx's cancellation and Exclusive waits for it
// to return.
func (p *Pipeline) Exclusive(ctx context.Context, fn func(ctx context.Context, session *Session) error) error {
	queued := &item{
		ctx:    ctx,
		detach: true,
		body:   fn,
		done:   make(chan error, 1),
	}
	if err := p.push(queued); err != nil {
		return err
	}
	return p.wait(queued)
}

func (p *Pipeline) push(queued *item) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, queued)
	p.wake.Signal()
	return nil
}

// wait blocks until queued finishes. A cancelled context withdraws the
// item if it has not started yet; a started item is always waited for.
func (p *Pipeline) wait(queued *item) error {
	select {
	case err := <-queued.done:
		return err
	case <-queued.ctx.Done():
	}

	p.mu.Lock()
	if !queued.running {
		for index, candidate := range p.queue {
			if candidate == queued {
				p.queue = append(p.queue[:index], p.queue[index+1:]...)
				p.mu.Unlock()
				return queued.ctx.Err()
			}
		}
	}
	p.mu.Unlock()
	return <-queued.done
}

func (p *Pipeline) worker() {
	defer close(p.stopped)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.wake.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		next.running = true
		p.mu.Unlock()

		if err := next.ctx.Err(); err != nil {
			next.done <- err
			continue
		}
		ctx := next.ctx
		if next.detach {
			ctx = context.WithoutCancel(ctx)
		}
		next.done <- next.body(ctx, &Session{pipeline: p})
	}
}

// Session runs jobs inline on the worker goroutine. It is only valid
// inside the item that received it.
type Session struct {
	pipeline *Pipeline
	entries  []Entry
}

// Run executes job immediately. A non-zero exit returns the populated
// Result together with a *CommandError.
func (session *Session) Run(ctx context.Context, job Job) (Result, error) {
	result, entry, err := session.pipeline.execute(ctx, job)
	session.entries = append(session.entries, entry)
	return result, err
}

// Entries returns the transcript entries of the jobs this session ran,
// in order.
func (session *Session) Entries() []Entry {
	return append([]Entry(nil), session.entries...)
}

func (p *Pipeline) execute(ctx context.Context, job Job) (Result, Entry, error) {
	logger := p.logger.With("job", job.label(), "dir", job.Dir)
	logger.Debug("running jj", "args", job.Args)

	start := p.clock.Now()
	result, err := p.runner.Run(ctx, job)
	result.Duration = p.clock.Since(start)

	entry := p.record(job, result, err)

	if err != nil {
		logger.Error("jj could not be run", "error", err)
		return result, entry, err
	}
	if result.ExitCode != 0 {
		logger.Warn("jj failed",
			"exit_code", result.ExitCode,
			"stderr", strings.TrimSpace(result.Stderr),
			"duration", result.Duration,
		)
		return result, entry, &CommandError{Job: job, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	logger.Info("jj finished", "duration", result.Duration)
	return result, entry, nil
}

// Entry is one finished job in the transcript.
type Entry struct {
	// Sequence increases by one per finished job over the lifetime of
	// the pipeline.
	Sequence uint64

	Label    string
	Command  string
	Dir      string
	ExitCode int

	// Output holds captured stdout lines followed by stderr lines.
	Output []string

	// Err is set when the process could not be run at all.
	Err string
}

// Failed reports whether the entry records a failure.
func (entry Entry) Failed() bool {
	return entry.ExitCode != 0 || entry.Err != ""
}

func (p *Pipeline) record(job Job, result Result, runErr error) Entry {
	entry := Entry{
		Label:    job.label(),
		Command:  job.String(),
		Dir:      job.Dir,
		ExitCode: result.ExitCode,
		Output:   append(splitLines(result.Stdout), splitLines(result.Stderr)...),
	}
	if runErr != nil {
		entry.Err = runErr.Error()
	}

	p.transcriptMu.Lock()
	defer p.transcriptMu.Unlock()
	p.sequence++
	entry.Sequence = p.sequence
	p.transcript = append(p.transcript, entry)
	if overflow := len(p.transcript) - p.transcriptLimit; overflow > 0 {
		p.transcript = append([]Entry(nil), p.transcript[overflow:]...)
	}
	return entry
}

// Transcript returns the retained finished jobs, oldest first.
func (p *Pipeline) Transcript() []Entry {
	p.transcriptMu.Lock()
	defer p.transcriptMu.Unlock()
	return append([]Entry(nil), p.transcript...)
}

// Lines renders entries the way the front-end shows them: each
// command line followed by its output, with a blank line between
// commands.
func Lines(entries []Entry) []string {
	var lines []string
	for index, entry := range entries {
		if index > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "$ "+entry.Command)
		lines = append(lines, entry.Output...)
		switch {
		case entry.Err != "":
			lines = append(lines, "error: "+entry.Err)
		case entry.ExitCode != 0:
			lines = append(lines, fmt.Sprintf("exit status %d", entry.ExitCode))
		}
	}
	return lines
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
