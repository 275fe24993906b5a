// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import "sort"

// Creation is the (epoch_seconds, sequence) ordering key assigned to a
// snapshot or bookmark at catalog-listing time. sequence is a
// monotonically increasing counter assigned in listing order, so entries
// created within the same wall-clock second still total-order.
type Creation struct {
	Epoch    int64
	Sequence int64
}

// Less orders two Creation values, breaking ties the caller must resolve
// with the entry name (see Entry.Less).
func (c Creation) Less(o Creation) bool {
	if c.Epoch != o.Epoch {
		return c.Epoch < o.Epoch
	}
	return c.Sequence < o.Sequence
}

func (c Creation) Equal(o Creation) bool {
	return c.Epoch == o.Epoch && c.Sequence == o.Sequence
}

// SentinelGUID and SentinelEpoch anchor the synthetic "fake newest" entry
// injected when a sync snapshot was just created but will not be
// re-listed this run (see planner.go). The sentinel is never used as a
// matching target; it only anchors "pick the newest" selection.
const (
	SentinelGUID  = "9999999999999999999" // 10^19 - 1
	SentinelEpoch = int64(10000000000)    // 10^10
)

// Kind distinguishes a Entry as a snapshot (can be a send target or
// source) or a bookmark (source only, never a receive target).
type Kind int

const (
	KindSnapshot Kind = iota
	KindBookmark
)

// Entry is a snapshot or bookmark as read from a catalog.
type Entry struct {
	Name     string // short name, after @ or #
	GUID     string
	Creation Creation
	Kind     Kind
}

// Less orders entries by (Creation, Name) ascending.
func (e Entry) Less(o Entry) bool {
	if !e.Creation.Equal(o.Creation) {
		return e.Creation.Less(o.Creation)
	}
	return e.Name < o.Name
}

// IsSentinel reports whether e is the synthetic fake-newest entry.
func (e Entry) IsSentinel() bool {
	return e.GUID == SentinelGUID
}

// SortEntries sorts entries ascending by (Creation, Name), satisfying I2.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Less(entries[j])
	})
}

// FakeNewest builds the synthetic sentinel entry appended to a source
// snapshot catalog when a sync snapshot was created this run but will
// not be re-listed this run.
func FakeNewest(name string) Entry {
	return Entry{
		Name:     name,
		GUID:     SentinelGUID,
		Creation: Creation{Epoch: SentinelEpoch},
		Kind:     KindSnapshot,
	}
}

// Newest returns the last (newest) non-empty entry, or the zero value
// and false if entries is empty.
func Newest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}
