// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package busycheck implements the busy-check regex: deciding
// whether a `ps` line on the target host is a `zfs receive`/`zfs recv`
// already writing to a given target dataset. Shared by the planner
// (one name, one preflight check before a transfer) and the recursive
// walker (many target names matched against a single `ps` snapshot).
package busycheck

import (
	"regexp"
	"strings"
)

// stillReceiving matches the text that must remain once a candidate
// target name has been stripped as a suffix from a `ps -Ao args=` line:
// "zfs *(receive|recv).*\s", i.e. the receive/recv invocation followed
// somewhere later by a whitespace character. The remainder need not end
// in whitespace, so a line naming a longer dataset that ends with the
// target name (tank/other/tank/backup/fs for tank/backup/fs) matches too.
var stillReceiving = regexp.MustCompile(`zfs *(receive|recv).*\s`)

// MatchesTarget reports whether line is a `zfs receive ... targetName`
// invocation: line must end with targetName, and what remains after
// stripping it must match stillReceiving.
func MatchesTarget(line, targetName string) bool {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasSuffix(line, targetName) {
		return false
	}
	remainder := line[:len(line)-len(targetName)]
	return stillReceiving.MatchString(remainder)
}

// ScanBusyTargets matches psOutput (the full stdout of one `ps -eo
// args` call) against every name in targetNames, returning the subset
// found busy. A single ps call handles a whole batch of sibling
// datasets so the walker pays for one subprocess instead of one per
// dataset.
func ScanBusyTargets(psOutput string, targetNames []string) map[string]bool {
	lines := strings.Split(psOutput, "\n")
	busy := make(map[string]bool, len(targetNames))
	for _, name := range targetNames {
		for _, line := range lines {
			if MatchesTarget(line, name) {
				busy[name] = true
				break
			}
		}
	}
	return busy
}
