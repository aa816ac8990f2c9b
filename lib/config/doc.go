// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for dagfront.
//
// Configuration comes from a single file named by the --config flag or,
// failing that, the DAGFRONT_CONFIG environment variable. When neither
// is set, [Default] is used unchanged. There is no ~/.config discovery
// and no per-key environment overrides: what the file says is what the
// program does.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- master struct with JJ, Store, Layout, and Log sections
//   - [Default] -- returns a Config that works against a stock jj install
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other dagfront packages.
package config
