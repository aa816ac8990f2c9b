// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspaceui implements the interactive workspace panel. Built
// on bubbletea (Elm architecture), it shows the workspaces of the
// attached repository with the current layout, and turns key presses
// into topology intents that run asynchronously through a [Controller].
//
// The model never touches the filesystem or runs jj itself. Every
// change goes through the Controller, and the on-screen list is only
// replaced with the snapshot a successful plan or refresh returns.
//
// Data flow:
//
//	[jj / workspace store / directories]
//	        | (Controller: session.Session)
//	    [Model] <- bubbletea event loop
//	        |
//	  [terminal output]
package workspaceui
