// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	original := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
	t.Cleanup(func() { readBuildInfo = original })
}

func TestInfo_Injected(t *testing.T) {
	defer func(commit, dirty, built string) { GitCommit, GitDirty, BuildTime = commit, dirty, built }(GitCommit, GitDirty, BuildTime)
	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-03-01T09:30:00Z"
	withBuildInfo(t, debug.BuildSetting{Key: "vcs.revision", Value: "ffffffffffffffff"})

	want := Version + " (abc1234-dirty, 2026-03-01T09:30:00Z)"
	if got := Info(); got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestInfo_FallsBackToToolchainStamp(t *testing.T) {
	defer func(commit, dirty, built string) { GitCommit, GitDirty, BuildTime = commit, dirty, built }(GitCommit, GitDirty, BuildTime)
	GitCommit, GitDirty, BuildTime = "unknown", "false", "unknown"
	withBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-02-28T12:00:00Z"},
	)

	want := Version + " (0123456789ab-dirty, 2026-02-28T12:00:00Z)"
	if got := Info(); got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(Full(), want+"\n  Go: ") {
		t.Errorf("Full() = %q", Full())
	}
}
