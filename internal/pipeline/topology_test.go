// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectTopology(t *testing.T) {
	tests := []struct {
		name                      string
		sourceRemote, targetRemote, direct bool
		want                      Topology
	}{
		{name: "both local", sourceRemote: false, targetRemote: false, want: TopologyLocal},
		{name: "push", sourceRemote: false, targetRemote: true, want: TopologyPush},
		{name: "pull", sourceRemote: true, targetRemote: false, want: TopologyPull},
		{name: "remote indirect by default", sourceRemote: true, targetRemote: true, direct: false, want: TopologyRemoteIndirect},
		{name: "remote direct when requested", sourceRemote: true, targetRemote: true, direct: true, want: TopologyRemoteDirect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectTopology(tt.sourceRemote, tt.targetRemote, tt.direct)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopologyString(t *testing.T) {
	assert.Equal(t, "local", TopologyLocal.String())
	assert.Equal(t, "push", TopologyPush.String())
	assert.Equal(t, "pull", TopologyPull.String())
	assert.Equal(t, "remote-direct", TopologyRemoteDirect.String())
	assert.Equal(t, "remote-indirect", TopologyRemoteIndirect.String())
	assert.Equal(t, "unknown", Topology(99).String())
}
