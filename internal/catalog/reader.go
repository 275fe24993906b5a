// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package catalog is the snapshot/bookmark catalog reader: it runs
// `zfs get -Hpd1 -t snapshot,bookmark guid,creation <fs>`, parses the
// tab-separated output into ordered dataset.Entry lists, and applies the
// include/exclude regex filters.
package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/stratastor/logger"

	"github.com/chithi/chithi/internal/dataset"
	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/procrun"
)

// unsupportedMarkers are the stderr substrings that mean "this pool
// doesn't support bookmark property queries": treated as an
// empty list, not a failure.
var unsupportedMarkers = []string{
	"invalid type",
	"operation not applicable to datasets of this type",
}

// Reader runs zfs get against one dataset to build its snapshot and
// bookmark catalogs.
type Reader struct {
	Elevate bool
	Log     logger.Logger
}

// New builds a Reader. elevate prefixes every zfs invocation with sudo,
// matching the rest of chithi's privilege model.
func New(elevate bool, log logger.Logger) *Reader {
	return &Reader{Elevate: elevate, Log: log}
}

// Snapshots reads fs's snapshot catalog on target, filters it through f,
// and returns it sorted by (creation, name) ascending.
func (r *Reader) Snapshots(ctx context.Context, target hostcmd.Target, fs string, f Filters) ([]dataset.Entry, error) {
	return r.read(ctx, target, fs, "snapshot", '@', f, false)
}

// Bookmarks reads fs's bookmark catalog on target. A pool that doesn't
// support bookmark property queries reports an empty list rather than
// an error.
func (r *Reader) Bookmarks(ctx context.Context, target hostcmd.Target, fs string, f Filters) ([]dataset.Entry, error) {
	return r.read(ctx, target, fs, "bookmark", '#', f, true)
}

func (r *Reader) read(ctx context.Context, target hostcmd.Target, fs, kindWord string, sep byte, f Filters, toleratesUnsupported bool) ([]dataset.Entry, error) {
	cmd := hostcmd.New("zfs", "get", "-Hpd", "1", "-t", kindWord, "guid,creation", fs).
		WithTarget(target).WithElevate(r.Elevate)

	h, err := procrun.Start(ctx, procrun.Spec{
		Argv:   cmd.Argv(),
		Stdout: procrun.StdioCapture,
		Stderr: procrun.StdioCapture,
		Log:    r.Log,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CatalogParseError)
	}
	waitErr := h.Wait()
	stdout, stderr := h.Stdout(), h.Stderr()

	if waitErr != nil {
		if toleratesUnsupported && isUnsupported(stderr) {
			if r.Log != nil {
				r.Log.Debug("bookmarks unsupported on this pool, treating as empty", "fs", fs)
			}
			return nil, nil
		}
		return nil, errs.Wrap(waitErr, errs.CatalogParseError)
	}

	kind := dataset.KindSnapshot
	if sep == '#' {
		kind = dataset.KindBookmark
	}
	entries, err := parseEntries(stdout, fs, sep, kind)
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		if f.Allowed(e.Name) {
			filtered = append(filtered, e)
		}
	}
	dataset.SortEntries(filtered)
	return filtered, nil
}

func isUnsupported(stderr string) bool {
	firstLine := stderr
	if idx := strings.IndexByte(stderr, '\n'); idx >= 0 {
		firstLine = stderr[:idx]
	}
	for _, marker := range unsupportedMarkers {
		if strings.Contains(firstLine, marker) {
			return true
		}
	}
	return false
}

// partial accumulates the guid/creation halves of one name until both
// have been seen.
type partial struct {
	guid        string
	hasGUID     bool
	epoch       int64
	hasCreation bool
}

// parseEntries parses zfs get's tab-separated "-Hpd1" output into
// dataset.Entry values: rows whose dataset prefix isn't
// "fs<sep>" are skipped, sequence numbers are assigned in the order
// each name is first encountered, and a name missing either half is a
// hard error.
func parseEntries(output, fs string, sep byte, kind dataset.Kind) ([]dataset.Entry, error) {
	prefix := fs + string(sep)

	order := make([]string, 0, 16)
	byName := make(map[string]*partial, 16)

	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			continue
		}
		name, prop, value := fields[0], fields[1], fields[2]
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		short := name[len(prefix):]

		p, ok := byName[short]
		if !ok {
			p = &partial{}
			byName[short] = p
			order = append(order, short)
		}
		switch prop {
		case "guid":
			p.guid = value
			p.hasGUID = true
		case "creation":
			epoch, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, errs.New(errs.CatalogParseError, "non-numeric creation for "+name)
			}
			p.epoch = epoch
			p.hasCreation = true
		}
	}

	entries := make([]dataset.Entry, 0, len(order))
	for seq, name := range order {
		p := byName[name]
		if !p.hasGUID || !p.hasCreation {
			return nil, errs.New(errs.CatalogIncomplete, "missing guid or creation for "+fs+string(sep)+name)
		}
		entries = append(entries, dataset.Entry{
			Name:     name,
			GUID:     p.guid,
			Creation: dataset.Creation{Epoch: p.epoch, Sequence: int64(seq)},
			Kind:     kind,
		})
	}
	return entries, nil
}
