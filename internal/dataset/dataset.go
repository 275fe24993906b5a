// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package dataset holds the data model shared by every other chithi
// package: dataset references, snapshots, bookmarks, and their ordering.
package dataset

import (
	"strings"
)

// Role distinguishes which side of a replication a Ref plays.
type Role int

const (
	Source Role = iota
	Target
)

func (r Role) String() string {
	if r == Source {
		return "source"
	}
	return "target"
}

// Ref identifies one dataset on one host, with its role in the current
// replication and, if it is a clone, its origin snapshot.
type Ref struct {
	Host   string // empty means local
	Name   string // pool/path, no @ or # component
	Role   Role
	Origin string // "pool/fs@snap", empty if not a clone
}

// ParseRef parses "[user@host:]pool/fs" into a Ref. A colon is only
// treated as a host separator when it occurs before the first slash,
// so that "pool/fs:with:colons" (not a real zfs name, but defensive)
// and IPv6-free hostnames both parse unambiguously. hostOverride, when
// non-empty, always wins over any host parsed from the string.
func ParseRef(spec, hostOverride string, role Role) Ref {
	host := hostOverride
	name := spec
	if host == "" {
		if idx := strings.IndexByte(spec, ':'); idx >= 0 {
			if slash := strings.IndexByte(spec, '/'); slash == -1 || idx < slash {
				host = spec[:idx]
				name = spec[idx+1:]
			}
		}
	} else if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		if slash := strings.IndexByte(spec, '/'); slash == -1 || idx < slash {
			name = spec[idx+1:]
		}
	}
	return Ref{Host: host, Name: name, Role: role}
}

// IsLocal reports whether this Ref targets the local host.
func (r Ref) IsLocal() bool {
	return r.Host == ""
}

// IsClone reports whether this Ref has a recorded origin.
func (r Ref) IsClone() bool {
	return r.Origin != ""
}

// NewChild returns a Ref for name, inheriting r's host and role and
// taking origin as its clone origin (empty if not a clone).
func (r Ref) NewChild(name, origin string) Ref {
	return Ref{Host: r.Host, Name: name, Role: r.Role, Origin: origin}
}

// OriginDataset returns the dataset part of an origin "pool/fs@snap"
// string, i.e. everything before '@'. Returns "" if origin has no '@'.
func OriginDataset(origin string) string {
	if idx := strings.IndexByte(origin, '@'); idx >= 0 {
		return origin[:idx]
	}
	return ""
}

// Display renders the Ref the way a human (or a log line) would write it.
func (r Ref) Display() string {
	if r.IsLocal() {
		return r.Name
	}
	return r.Host + ":" + r.Name
}
