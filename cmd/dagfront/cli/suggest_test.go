// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "abc", 1},
		{"abc", "bac", 2},
		{"kitten", "sitting", 3},
		{"forget", "froget", 2},
		{"rename", "renam", 1},
	}
	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if got := levenshtein(test.b, test.a); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d (symmetric)", test.b, test.a, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{{Name: "list"}, {Name: "add"}, {Name: "forget"}, {Name: "rename"}, {Name: "update-stale"}}
	tests := []struct {
		input, want string
	}{
		{"lsit", "list"},
		{"ad", "add"},
		{"forgt", "forget"},
		{"update-stal", "update-stale"},
		{"completely-different", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.Bool("dry-run", false, "")
	flagSet.BoolP("json", "j", false, "")
	flagSet.String("repository", "", "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"long typo", []string{"--dryrun"}, "--dry-run"},
		{"with value", []string{"--repositry=/src"}, "--repository"},
		{"skips defined", []string{"--json", "--jsno"}, "--json"},
		{"defined shorthand", []string{"-j"}, ""},
		{"no match", []string{"--zzzzzzzzzz"}, ""},
		{"positional only", []string{"feature"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, flagSet); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
