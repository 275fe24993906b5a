// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chithi/chithi/internal/dataset"
)

func entry(name, guid string, epoch int64, kind dataset.Kind) dataset.Entry {
	return dataset.Entry{Name: name, GUID: guid, Creation: dataset.Creation{Epoch: epoch}, Kind: kind}
}

func TestFindSnapshotMatch(t *testing.T) {
	source := []dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
		entry("s2", "g2", 2, dataset.KindSnapshot),
		entry("s3", "g3", 3, dataset.KindSnapshot),
	}
	target := ByName([]dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
		entry("s2", "g2", 2, dataset.KindSnapshot),
	})

	res := Find(source, target, nil)

	require.True(t, res.Found())
	assert.Equal(t, "s2", res.Anchor.Entry.Name)
	require.Len(t, res.Anchor.Tail, 1)
	assert.Equal(t, "s3", res.Anchor.Tail[0].Name)
}

func TestFindPrefersNewestCommonSnapshot(t *testing.T) {
	source := []dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
		entry("s2", "g2", 2, dataset.KindSnapshot),
	}
	target := ByName([]dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
		entry("s2", "g2", 2, dataset.KindSnapshot),
	})

	res := Find(source, target, nil)

	require.True(t, res.Found())
	assert.Equal(t, "s2", res.Anchor.Entry.Name)
	assert.Empty(t, res.Anchor.Tail)
}

func TestFindGUIDMismatchIsNotAMatch(t *testing.T) {
	source := []dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
	}
	target := ByName([]dataset.Entry{
		entry("s1", "different-guid", 1, dataset.KindSnapshot),
	})

	res := Find(source, target, nil)

	assert.False(t, res.Found())
}

func TestFindFallsBackToBookmark(t *testing.T) {
	source := []dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
		entry("s2", "g2", 2, dataset.KindSnapshot),
	}
	// target has no snapshot in common, but holds a snapshot whose GUID
	// matches a source bookmark.
	target := ByName([]dataset.Entry{
		entry("renamed", "g1", 1, dataset.KindSnapshot),
	})
	bookmarks := []dataset.Entry{
		entry("s1#bm", "g1", 1, dataset.KindBookmark),
	}

	res := Find(source, target, bookmarks)

	require.True(t, res.Found())
	assert.Equal(t, "s1#bm", res.Anchor.Entry.Name)
	require.Len(t, res.Anchor.Tail, 1)
	assert.Equal(t, "s2", res.Anchor.Tail[0].Name)
}

func TestFindNoMatch(t *testing.T) {
	source := []dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
	}
	target := ByName([]dataset.Entry{
		entry("other", "g9", 9, dataset.KindSnapshot),
	})

	res := Find(source, target, nil)

	assert.False(t, res.Found())
	assert.Nil(t, res.Anchor)
}

func TestFindEmptySource(t *testing.T) {
	res := Find(nil, map[string]dataset.Entry{}, nil)
	assert.False(t, res.Found())
}

func TestByNameAndByGUID(t *testing.T) {
	entries := []dataset.Entry{
		entry("s1", "g1", 1, dataset.KindSnapshot),
		entry("s2", "g2", 2, dataset.KindSnapshot),
	}

	byName := ByName(entries)
	byGUID := ByGUID(entries)

	assert.Equal(t, "g1", byName["s1"].GUID)
	assert.Equal(t, "s2", byGUID["g2"].Name)
}
