// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/toolinventory"
)

func remoteHost(name string) hostcmd.Target {
	return hostcmd.NewRemote(&hostcmd.RemoteHost{Host: name})
}

func programs(p *Pipeline) []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = s.Program
	}
	return out
}

func TestBuildRemoteIndirectLocalHopIndependentOfPV(t *testing.T) {
	// isTerminal false means wantPV is false, so the local hop's pv
	// stage never fires, but mbuffer and compress must still assemble:
	// they used to be nested inside the pv branch and silently
	// vanished whenever stderr wasn't a terminal (e.g. cron runs).
	inv := toolinventory.New(nil, true, nil)
	opts := Options{Compress: "zstd-fast", MbufferSize: "16M"}
	hosts := Hosts{Source: remoteHost("src"), Target: remoteHost("dst"), Local: hostcmd.Local}

	plan := Build(context.Background(), hosts,
		hostcmd.New("zfs", "send", "pool/a@1"),
		hostcmd.New("zfs", "receive", "pool/b"),
		opts, inv, false)

	assert.Equal(t, TopologyRemoteIndirect, plan.Topology)
	if assert.NotNil(t, plan.Local) {
		local := programs(plan.Local)
		assert.Contains(t, local, "mbuffer")
		assert.Contains(t, local, compressorBinary(t, opts))
		assert.NotContains(t, local, "pv")
		// leading and trailing mbuffer are both independent slots.
		count := 0
		for _, p := range local {
			if p == "mbuffer" {
				count++
			}
		}
		assert.Equal(t, 2, count)
	}
}

func compressorBinary(t *testing.T, opts Options) string {
	t.Helper()
	spec, ok := LookupCompressor(opts.Compress)
	if !ok {
		t.Fatalf("no compressor registered for %q", opts.Compress)
	}
	return spec.CompressBin
}

func TestBuildRemoteIndirectLocalHopWithPV(t *testing.T) {
	inv := toolinventory.New(nil, true, nil)
	opts := Options{Compress: "zstd-fast", MbufferSize: "16M"}
	hosts := Hosts{Source: remoteHost("src"), Target: remoteHost("dst"), Local: hostcmd.Local}

	plan := Build(context.Background(), hosts,
		hostcmd.New("zfs", "send", "pool/a@1"),
		hostcmd.New("zfs", "receive", "pool/b"),
		opts, inv, true)

	if assert.NotNil(t, plan.Local) {
		local := programs(plan.Local)
		assert.Contains(t, local, "pv")
		assert.Contains(t, local, "mbuffer")
	}
}

func TestBuildSkipOptionalCommandsAppliesAtEveryHop(t *testing.T) {
	inv := toolinventory.New([]string{"pv", "mbuffer"}, true, nil)
	hosts := Hosts{Source: remoteHost("src"), Target: remoteHost("dst"), Local: hostcmd.Local}

	plan := Build(context.Background(), hosts,
		hostcmd.New("zfs", "send", "pool/a@1"),
		hostcmd.New("zfs", "receive", "pool/b"),
		Options{MbufferSize: "16M"}, inv, true)

	assert.NotContains(t, programs(plan.Source), "pv")
	assert.NotContains(t, programs(plan.Source), "mbuffer")
	assert.NotContains(t, programs(plan.Target), "mbuffer")
}

func TestBuildLocalTopologyNoLocalHop(t *testing.T) {
	inv := toolinventory.New(nil, true, nil)
	hosts := Hosts{Source: hostcmd.Local, Target: hostcmd.Local, Local: hostcmd.Local}

	plan := Build(context.Background(), hosts,
		hostcmd.New("zfs", "send", "pool/a@1"),
		hostcmd.New("zfs", "receive", "pool/b"),
		Options{}, inv, true)

	assert.Equal(t, TopologyLocal, plan.Topology)
	assert.Nil(t, plan.Target)
	assert.Nil(t, plan.Local)
	assert.Contains(t, programs(plan.Source), "zfs")
}
