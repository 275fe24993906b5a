// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package naming

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncSnapshotName(t *testing.T) {
	loc := time.FixedZone("GMT-5", -5*3600)
	now := time.Date(2025, 3, 4, 12, 30, 15, 0, loc)

	got := SyncSnapshotName("myid", "myhost", now)

	assert.Equal(t, "chithi_myidmyhost_2025-03-04:12:30:15-GMT-05:00", got)
}

func TestSyncSnapshotNamePositiveOffset(t *testing.T) {
	loc := time.FixedZone("GMT+5:30", 5*3600+30*60)
	now := time.Date(2025, 3, 4, 12, 30, 15, 0, loc)

	got := SyncSnapshotName("id", "host", now)

	assert.Equal(t, "chithi_idhost_2025-03-04:12:30:15-GMT+05:30", got)
}

func TestPruneMatches(t *testing.T) {
	tests := []struct {
		name         string
		snapName     string
		pruneFormat  string
		identifier   string
		hostname     string
		want         bool
	}{
		{
			name:        "exact prefix match",
			snapName:    "chithi_idhost_2025-03-04:12:30:15-GMT+00:00",
			pruneFormat: "chithi",
			identifier:  "id",
			hostname:    "host",
			want:        true,
		},
		{
			name:        "different identifier",
			snapName:    "chithi_otherhost_2025-03-04:12:30:15-GMT+00:00",
			pruneFormat: "chithi",
			identifier:  "id",
			hostname:    "host",
			want:        false,
		},
		{
			name:        "unrelated snapshot",
			snapName:    "manual-backup",
			pruneFormat: "chithi",
			identifier:  "id",
			hostname:    "host",
			want:        false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PruneMatches(tt.snapName, tt.pruneFormat, tt.identifier, tt.hostname))
		})
	}
}

func TestSanitizeHostForSocket(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "user at host", host: "root@backup.example.com", want: "root-backupexamplecom"},
		{name: "plain host", host: "backup01", want: "backup01"},
		{name: "long host truncated", host: strings.Repeat("a", 60), want: strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHostForSocket(tt.host)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 50)
		})
	}
}

func TestControlSocketPath(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 30, 15, 0, time.UTC)

	p := ControlSocketPath("root@backup.example.com", now, 4242)

	require.True(t, strings.HasPrefix(p, "/tmp/chithi-root-backupexamplecom-20250304123015-4242-"))
	assert.Len(t, p, len("/tmp/chithi-root-backupexamplecom-20250304123015-4242-")+3)
}

func TestControlSocketPathUnique(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 30, 15, 0, time.UTC)
	a := ControlSocketPath("host", now, 1)
	b := ControlSocketPath("host", now, 1)
	assert.NotEqual(t, a, b, "random suffix should make repeated calls distinct")
}
