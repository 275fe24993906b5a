// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// Topology names one of the five source/target locality combinations.
type Topology int

const (
	// TopologyLocal: both source and target are on the local host.
	TopologyLocal Topology = iota
	// TopologyPush: source is local, target is remote.
	TopologyPush
	// TopologyPull: source is remote, target is local.
	TopologyPull
	// TopologyRemoteDirect: source and target are both remote, piped
	// through one `ssh` hop without coming back through the local host.
	TopologyRemoteDirect
	// TopologyRemoteIndirect: source and target are both remote, with
	// the stream routed through a local intermediate hop.
	TopologyRemoteIndirect
)

func (t Topology) String() string {
	switch t {
	case TopologyLocal:
		return "local"
	case TopologyPush:
		return "push"
	case TopologyPull:
		return "pull"
	case TopologyRemoteDirect:
		return "remote-direct"
	case TopologyRemoteIndirect:
		return "remote-indirect"
	default:
		return "unknown"
	}
}

// SelectTopology picks a Topology from whether source/target are remote
// and, when both are remote, whether a direct (no local hop) connection
// was requested.
func SelectTopology(sourceRemote, targetRemote, direct bool) Topology {
	switch {
	case sourceRemote && targetRemote:
		if direct {
			return TopologyRemoteDirect
		}
		return TopologyRemoteIndirect
	case sourceRemote:
		return TopologyPull
	case targetRemote:
		return TopologyPush
	default:
		return TopologyLocal
	}
}
