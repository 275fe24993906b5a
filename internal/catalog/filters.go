// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"regexp"

	"github.com/chithi/chithi/internal/errs"
)

// Filters holds the compiled include/exclude regex lists applied to
// snapshot/bookmark short names after catalog collection.
type Filters struct {
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
}

// CompileFilters compiles include/exclude pattern lists, wrapping any
// regexp syntax error as a CommandInvalidInput.
func CompileFilters(includePatterns, excludePatterns []string) (Filters, error) {
	var f Filters
	var err error
	if f.Include, err = compileAll(includePatterns); err != nil {
		return Filters{}, err
	}
	if f.Exclude, err = compileAll(excludePatterns); err != nil {
		return Filters{}, err
	}
	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errs.New(errs.CommandInvalidInput, "invalid filter pattern: "+p)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Allowed reports whether name survives f: exclude wins over include
// when both match ("a snapshot matching both exclude and
// include is excluded"). An empty Include list admits everything not
// otherwise excluded.
func (f Filters) Allowed(name string) bool {
	if matchesAny(f.Exclude, name) {
		return false
	}
	if len(f.Include) > 0 && !matchesAny(f.Include, name) {
		return false
	}
	return true
}
