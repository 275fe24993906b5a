// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name         string
		spec         string
		hostOverride string
		wantHost     string
		wantName     string
	}{
		{name: "local dataset", spec: "tank/fs", wantHost: "", wantName: "tank/fs"},
		{name: "remote dataset", spec: "root@backup:tank/fs", wantHost: "root@backup", wantName: "tank/fs"},
		{
			name:     "colon after first slash is not a host separator",
			spec:     "tank/fs:with:colons",
			wantHost: "",
			wantName: "tank/fs:with:colons",
		},
		{
			name:         "host override wins over parsed host",
			spec:         "root@backup:tank/fs",
			hostOverride: "otherhost",
			wantHost:     "otherhost",
			wantName:     "tank/fs",
		},
		{
			name:         "host override with no colon in spec",
			spec:         "tank/fs",
			hostOverride: "otherhost",
			wantHost:     "otherhost",
			wantName:     "tank/fs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := ParseRef(tt.spec, tt.hostOverride, Source)
			assert.Equal(t, tt.wantHost, ref.Host)
			assert.Equal(t, tt.wantName, ref.Name)
			assert.Equal(t, Source, ref.Role)
		})
	}
}

func TestRefIsLocal(t *testing.T) {
	assert.True(t, ParseRef("tank/fs", "", Source).IsLocal())
	assert.False(t, ParseRef("host:tank/fs", "", Source).IsLocal())
}

func TestRefIsClone(t *testing.T) {
	r := Ref{Name: "tank/clone"}
	assert.False(t, r.IsClone())
	r.Origin = "tank/fs@snap"
	assert.True(t, r.IsClone())
}

func TestRefNewChild(t *testing.T) {
	parent := Ref{Host: "backup", Name: "tank/fs", Role: Target}
	child := parent.NewChild("tank/fs/child", "tank/fs@snap")

	assert.Equal(t, "backup", child.Host)
	assert.Equal(t, "tank/fs/child", child.Name)
	assert.Equal(t, Target, child.Role)
	assert.Equal(t, "tank/fs@snap", child.Origin)
}

func TestOriginDataset(t *testing.T) {
	assert.Equal(t, "tank/fs", OriginDataset("tank/fs@snap"))
	assert.Equal(t, "", OriginDataset("no-at-sign"))
}

func TestRefDisplay(t *testing.T) {
	assert.Equal(t, "tank/fs", Ref{Name: "tank/fs"}.Display())
	assert.Equal(t, "host:tank/fs", Ref{Host: "host", Name: "tank/fs"}.Display())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "source", Source.String())
	assert.Equal(t, "target", Target.String())
}
