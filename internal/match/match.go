// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package match is the matching engine: given the sorted source
// snapshot catalog, the target's snapshot GUID index, and optionally
// the sorted source bookmark catalog, it finds the newest common point
// the two sides already share and the tail of source entries still to
// be sent.
package match

import (
	"github.com/chithi/chithi/internal/dataset"
)

// ByName indexes entries by their short name.
func ByName(entries []dataset.Entry) map[string]dataset.Entry {
	m := make(map[string]dataset.Entry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m
}

// ByGUID indexes entries by GUID. Later entries win on a GUID collision,
// which cannot happen for legitimate ZFS metadata but keeps the
// function total.
func ByGUID(entries []dataset.Entry) map[string]dataset.Entry {
	m := make(map[string]dataset.Entry, len(entries))
	for _, e := range entries {
		m[e.GUID] = e
	}
	return m
}

// Anchor is the IntermediateSource the matching engine selected: the
// newest point source and target already share, plus whether that
// point was a snapshot (can be a `-I`/`-i` send target too) or a
// bookmark (send source only).
type Anchor struct {
	Entry dataset.Entry
	Tail  []dataset.Entry // entries of S strictly newer than Entry, ascending
}

// Result is the outcome of Find: either an Anchor (match found) or
// neither, meaning no common point exists.
type Result struct {
	Anchor *Anchor
}

// Found reports whether r carries a match.
func (r Result) Found() bool {
	return r.Anchor != nil
}

// Find runs the two-pass matching algorithm: sortedSource and
// sortedBookmarks must already be sorted ascending by (creation, name)
// (sorted ascending by creation then name); targetByName indexes the
// target's snapshot catalog.
//
//  1. Scan sortedSource from newest to oldest; the first entry whose
//     name is also present on target with an equal GUID is the match.
//  2. If no snapshot matches and bookmarks are available, find the
//     target snapshot whose GUID equals some bookmark's GUID (scanning
//     target entries from newest); that bookmark anchors the send.
//  3. Otherwise, no match.
func Find(sortedSource []dataset.Entry, targetByName map[string]dataset.Entry, sortedBookmarks []dataset.Entry) Result {
	for i := len(sortedSource) - 1; i >= 0; i-- {
		s := sortedSource[i]
		if t, ok := targetByName[s.Name]; ok && t.GUID == s.GUID {
			return Result{Anchor: &Anchor{Entry: s, Tail: sortedSource[i+1:]}}
		}
	}

	if len(sortedBookmarks) == 0 {
		return Result{}
	}

	bookmarkByGUID := ByGUID(sortedBookmarks)
	targetsNewestFirst := newestFirst(targetByName)
	for _, t := range targetsNewestFirst {
		bm, ok := bookmarkByGUID[t.GUID]
		if !ok {
			continue
		}
		tail := tailStrictlyAfter(sortedSource, bm.Creation)
		return Result{Anchor: &Anchor{Entry: bm, Tail: tail}}
	}

	return Result{}
}

// newestFirst returns byName's values sorted descending by (creation, name).
func newestFirst(byName map[string]dataset.Entry) []dataset.Entry {
	out := make([]dataset.Entry, 0, len(byName))
	for _, e := range byName {
		out = append(out, e)
	}
	dataset.SortEntries(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// tailStrictlyAfter returns the suffix of sorted (ascending) whose
// creation strictly exceeds anchor.
func tailStrictlyAfter(sorted []dataset.Entry, anchor dataset.Creation) []dataset.Entry {
	for i, e := range sorted {
		if anchor.Less(e.Creation) {
			return sorted[i:]
		}
	}
	return nil
}
