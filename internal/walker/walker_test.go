// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesAny(t *testing.T) {
	res := []*regexp.Regexp{regexp.MustCompile(`^tank/tmp`)}

	assert.True(t, matchesAny(res, "tank/tmp/scratch"))
	assert.False(t, matchesAny(res, "tank/data"))
	assert.False(t, matchesAny(nil, "tank/data"))
}

func TestTranslateOrigin(t *testing.T) {
	tests := []struct {
		name         string
		origin       string
		sourcePrefix string
		targetPrefix string
		want         string
	}{
		{
			name:         "child under source prefix",
			origin:       "tank/src/base@snap1",
			sourcePrefix: "tank/src",
			targetPrefix: "tank/dst",
			want:         "tank/dst/base@snap1",
		},
		{
			name:         "origin equals prefix exactly",
			origin:       "tank/src@snap1",
			sourcePrefix: "tank/src",
			targetPrefix: "tank/dst",
			want:         "tank/dst@snap1",
		},
		{
			name:         "origin outside source prefix is unchanged",
			origin:       "tank/other/base@snap1",
			sourcePrefix: "tank/src",
			targetPrefix: "tank/dst",
			want:         "tank/other/base@snap1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateOrigin(tt.origin, tt.sourcePrefix, tt.targetPrefix)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeferParentSkip(t *testing.T) {
	nodes := []Node{
		{SourceName: "tank/src", IsParent: true},
		{SourceName: "tank/src/child1"},
		{SourceName: "tank/src/child2"},
	}

	out := deferParentSkip(nodes)

	assert.Len(t, out, 2)
	for _, n := range out {
		assert.False(t, n.IsParent)
	}
}

func TestDeferCloneSiblings(t *testing.T) {
	nodes := []Node{
		{SourceName: "tank/src", TargetName: "tank/dst", IsParent: true},
		{SourceName: "tank/src/base", TargetName: "tank/dst/base"},
		{
			SourceName:   "tank/src/clone",
			TargetName:   "tank/dst/clone",
			TargetOrigin: "tank/dst/base@snap1",
		},
		{
			// Origin points outside this batch entirely (e.g. a
			// pre-existing dataset on the target); must not be deferred.
			SourceName:   "tank/src/independent",
			TargetName:   "tank/dst/independent",
			TargetOrigin: "tank/elsewhere/base@snap1",
		},
	}

	out := deferCloneSiblings(nodes)

	assert.False(t, out[0].Deferred)
	assert.False(t, out[1].Deferred)
	assert.True(t, out[2].Deferred)
	assert.False(t, out[3].Deferred)
}

func TestDeferCloneSiblingsOriginIsSelfNotDeferred(t *testing.T) {
	nodes := []Node{
		{SourceName: "tank/src", TargetName: "tank/dst", TargetOrigin: "tank/dst@snap1"},
	}

	out := deferCloneSiblings(nodes)

	assert.False(t, out[0].Deferred)
}

func TestOrdered(t *testing.T) {
	nodes := []Node{
		{SourceName: "a", Deferred: false},
		{SourceName: "b", Deferred: true},
		{SourceName: "c", Deferred: false},
	}

	first, second := Ordered(nodes)

	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
	assert.Equal(t, "b", second[0].SourceName)
}
