// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strconv"
	"strings"
)

// Options carries the flags that influence pipeline shape: which
// optional tools to try, compression choice, bandwidth limits, and the
// `--skip-optional-commands` suppression list.
type Options struct {
	PVOptions       []string // e.g. {"-p", "-t", "-e", "-r", "-b"}
	Compress        string   // "" / "none" disables compression
	MbufferSize     string   // e.g. "16M"; empty disables the -s flag
	SourceBwlimit   string   // mbuffer -r value on the source-side hop
	TargetBwlimit   string   // mbuffer -R value on the target-side hop
	SkipOptional    []string // --skip-optional-commands tokens
	NoCommandChecks bool
	Quiet           bool
	DirectConnection bool // --direct: skip the local hop for remote-remote

	// SizeHint is the estimated byte size of the stream, from a `zfs
	// send -nvP` dry run. Zero means no estimate is available; pvArgs
	// then omits the `-s` flag and pv falls back to its no-ETA display.
	SizeHint int64
}

// sourceMbufferArgs builds the argv mbuffer takes on a hop that is
// reading the stream and forwarding it onward (source or intermediate).
func (o Options) sourceMbufferArgs() []string {
	var args []string
	if o.MbufferSize != "" {
		args = append(args, "-s", o.MbufferSize)
	}
	if o.SourceBwlimit != "" {
		args = append(args, "-r", o.SourceBwlimit)
	}
	return args
}

// targetMbufferArgs builds the argv mbuffer takes on a hop that is
// writing the stream onward toward `zfs receive`.
func (o Options) targetMbufferArgs() []string {
	var args []string
	if o.MbufferSize != "" {
		args = append(args, "-s", o.MbufferSize)
	}
	if o.TargetBwlimit != "" {
		args = append(args, "-R", o.TargetBwlimit)
	}
	return args
}

// pvArgs builds pv's argv. When SizeHint is set, it prepends `-s
// <bytes>` so pv can show a percentage and ETA instead of just a byte
// counter.
func (o Options) pvArgs() []string {
	args := o.PVOptions
	if len(args) == 0 {
		args = []string{"-p", "-t", "-e", "-r", "-b"}
	}
	if o.SizeHint > 0 {
		args = append([]string{"-s", strconv.FormatInt(o.SizeHint, 10)}, args...)
	}
	return args
}

func (o Options) compressEnabled() bool {
	_, ok := LookupCompressor(o.Compress)
	return ok
}

func (o Options) usePV(isTerminal bool) bool {
	return isTerminal && !o.Quiet
}

// UsePV reports whether pv would be attempted for this run, so callers
// can decide whether estimating the stream size is worth the extra
// `zfs send -nvP` dry run.
func (o Options) UsePV(isTerminal bool) bool {
	return o.usePV(isTerminal)
}

func parseSkipOptional(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
