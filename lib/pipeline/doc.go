// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline serializes every external jj invocation made by
// dagfront.
//
// jj is not safe for concurrent invocation against one repository, so
// the [Pipeline] runs exactly one item at a time, in submission order,
// on a single worker goroutine. Serialization is the correctness
// mechanism here, not a throughput knob: there is no worker count.
//
// An item is either a single [Job] ([Pipeline.Run], [Pipeline.Submit])
// or an exclusive section ([Pipeline.Exclusive]) whose body may run any
// number of jobs through the [Session] it receives. While a section
// runs, nothing else is dequeued. The topology planner executes a whole
// plan inside one section so that a second intent's invocations queue
// behind the first's rather than interleaving with its directory moves.
//
// A non-zero exit is reported as a [*CommandError] (errors.Is
// [ErrCommandFailed]); the pipeline itself keeps going with the next
// item. Items cancelled before they are dequeued never run. A section,
// once started, runs with cancellation detached from the caller's
// context: abandoning half-applied directory and store state is worse
// than finishing.
//
// Every finished job is appended to a bounded transcript (command line,
// exit status, output lines) that the interactive front-end displays.
package pipeline
