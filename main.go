// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/chithi/chithi/cmd"
	"github.com/chithi/chithi/internal/errs"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a failing run's error onto a distinct nonzero exit
// code ("Specific kinds: command-not-found, busy, no-match-
// refusing, parse error, subprocess nonzero exit").
func exitCodeFor(err error) int {
	code, ok := errs.Code(err)
	if !ok {
		return 1
	}
	switch code {
	case errs.CommandNotFound:
		return 127
	case errs.PlannerBusy:
		return 75
	case errs.PlannerRefused:
		return 65
	case errs.CatalogParseError, errs.CatalogIncomplete, errs.CommandOutputParse:
		return 76
	case errs.CommandExecution:
		return 1
	default:
		return 1
	}
}
