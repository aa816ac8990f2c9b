// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable consulted by [Load] when no
// explicit path is given.
const EnvironmentVariable = "DAGFRONT_CONFIG"

// Config is the master configuration structure.
type Config struct {
	// JJ controls how the external engine is invoked.
	JJ JJConfig `yaml:"jj"`

	// Store locates the engine's workspace store inside a repository.
	Store StoreConfig `yaml:"store"`

	// Layout controls the power-workspace directory convention.
	Layout LayoutConfig `yaml:"layout"`

	// Log controls where and how verbosely the TUI logs.
	Log LogConfig `yaml:"log"`
}

// JJConfig describes the jj binary and its invocation.
type JJConfig struct {
	// Binary is the jj executable, resolved through PATH when it
	// contains no separator.
	Binary string `yaml:"binary"`

	// GlobalArgs are prepended to every invocation (after the
	// --repository flag the pipeline injects).
	GlobalArgs []string `yaml:"global_args"`

	// ListTemplate is the template passed to "jj workspace list -T".
	// It must print one workspace per line as name, a tab, and the
	// absolute workspace root.
	ListTemplate string `yaml:"list_template"`
}

// StoreConfig locates the workspace store.
type StoreConfig struct {
	// Index is the store file path relative to the repository
	// directory (the directory .jj/repo of the hosting workspace).
	Index string `yaml:"index"`
}

// LayoutConfig controls the scooped/un-scooped layout.
type LayoutConfig struct {
	// DefaultName is the name of the original workspace. Un-scooping
	// happens only when the sole remaining workspace has this name.
	DefaultName string `yaml:"default_name"`

	// ArchiveDir receives the directories of forgotten workspaces. When
	// empty, a hidden sibling of the project root is used:
	// <parent>/.<project>-forgotten.
	ArchiveDir string `yaml:"archive_dir"`
}

// LogConfig controls logging for the interactive front-end.
type LogConfig struct {
	// File is the log file path. A "%DATE%" token is replaced with the
	// current date (YYYY-MM-DD) when the file is opened.
	File string `yaml:"file"`

	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns a configuration that works against a stock jj
// install with the standard store location.
func Default() *Config {
	return &Config{
		JJ: JJConfig{
			Binary:       "jj",
			GlobalArgs:   []string{"--no-pager", "--color=never"},
			ListTemplate: `name ++ "\t" ++ root ++ "\n"`,
		},
		Store: StoreConfig{
			Index: filepath.Join("workspace_store", "index"),
		},
		Layout: LayoutConfig{
			DefaultName: "default",
		},
		Log: LogConfig{
			File:  filepath.Join("logs", "dagfront-%DATE%.log"),
			Level: "info",
		},
	}
}

// Load loads the file at path, or the file named by DAGFRONT_CONFIG
// when path is empty. With neither, it returns [Default].
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from the given file on top of
// [Default], expands variables, and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile decodes a single configuration file, merging into the
// current config. Unknown keys are errors: a misspelled key silently
// falling back to a default is worse than refusing to start.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.JJ.Binary = expandVars(c.JJ.Binary, vars)
	c.Layout.ArchiveDir = expandVars(c.Layout.ArchiveDir, vars)
	c.Log.File = expandVars(c.Log.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.JJ.Binary == "" {
		errs = append(errs, fmt.Errorf("jj.binary is required"))
	}
	if !strings.Contains(c.JJ.ListTemplate, "name") {
		errs = append(errs, fmt.Errorf("jj.list_template must print the workspace name"))
	}

	if c.Store.Index == "" {
		errs = append(errs, fmt.Errorf("store.index is required"))
	} else if filepath.IsAbs(c.Store.Index) {
		errs = append(errs, fmt.Errorf("store.index must be relative to the repository directory, got %s", c.Store.Index))
	}

	name := c.Layout.DefaultName
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		errs = append(errs, fmt.Errorf("layout.default_name %q is not a usable directory name", name))
	}
	if c.Layout.ArchiveDir != "" && !filepath.IsAbs(c.Layout.ArchiveDir) {
		errs = append(errs, fmt.Errorf("layout.archive_dir must be absolute, got %s", c.Layout.ArchiveDir))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	return level, nil
}

// LogFile returns Log.File with the %DATE% token replaced by date,
// which callers format as YYYY-MM-DD.
func (c *Config) LogFile(date string) string {
	return strings.ReplaceAll(c.Log.File, "%DATE%", date)
}
