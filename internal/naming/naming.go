// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package naming generates the two kinds of name chithi invents at
// runtime: sync-snapshot names and SSH control-socket paths.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncSnapshotName builds "chithi_<identifier><hostname>_<YYYY-MM-DD:HH:MM:SS-GMT±HH:MM>".
func SyncSnapshotName(identifier, hostname string, now time.Time) string {
	_, offset := now.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	h := offset / 3600
	m := (offset % 3600) / 60
	stamp := fmt.Sprintf("%s-GMT%s%02d:%02d", now.Format("2006-01-02:15:04:05"), sign, h, m)
	return fmt.Sprintf("chithi_%s%s_%s", identifier, hostname, stamp)
}

// PruneMatches reports whether a snapshot/bookmark name is a sync
// snapshot this tool would prune, i.e. it begins with
// "<pruneFormat>_<identifier><hostname>".
func PruneMatches(name, pruneFormat, identifier, hostname string) bool {
	return strings.HasPrefix(name, pruneFormat+"_"+identifier+hostname)
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9-]`)

// SanitizeHostForSocket drops non-alphanumerics from host (replacing '@'
// with '-' first so user@host collapses readably) and truncates to 50
// characters, per the control-socket naming rule.
func SanitizeHostForSocket(host string) string {
	h := strings.ReplaceAll(host, "@", "-")
	h = nonAlnum.ReplaceAllString(h, "")
	if len(h) > 50 {
		h = h[:50]
	}
	return h
}

// ControlSocketPath builds "/tmp/chithi-<hostsanitized>-<yyyymmddHHMMSS>-<pid>-<rand3>".
func ControlSocketPath(host string, now time.Time, pid int) string {
	suffix := strings.ToLower(strings.ReplaceAll(uuid.New().String(), "-", ""))[:3]
	name := fmt.Sprintf("chithi-%s-%s-%d-%s",
		SanitizeHostForSocket(host), now.Format("20060102150405"), pid, suffix)
	return filepath.Join("/tmp", name)
}
