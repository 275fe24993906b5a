// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"

	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/toolinventory"
)

// Hosts carries the three possible execution targets a Plan's stages
// can run on: where the send originates, where the receive lands, and
// the local machine chithi itself runs on (used as the optional
// intermediate hop for TopologyRemoteIndirect).
type Hosts struct {
	Source hostcmd.Target
	Target hostcmd.Target
	Local  hostcmd.Target
}

// Build assembles a Plan for one transfer: sendCmd and recvCmd are the
// already-constructed `zfs send`/`zfs receive` Commands (still
// un-targeted; Build binds them to Hosts.Source/Hosts.Target), opts
// chooses which optional tools to attempt, and inv probes per-hop
// availability, degrading a stage out (with a warning) if its binary is
// missing. isTerminal reports whether our own stderr is a terminal (pv
// is pointless when output isn't watched live).
func Build(ctx context.Context, hosts Hosts, sendCmd, recvCmd hostcmd.Command, opts Options, inv *toolinventory.Inventory, isTerminal bool) *Plan {
	topo := SelectTopology(!hosts.Source.IsLocal(), !hosts.Target.IsLocal(), opts.DirectConnection)
	wantPV := opts.usePV(isTerminal)
	wantCompress := opts.compressEnabled()
	compressor, _ := LookupCompressor(opts.Compress)

	sendCmd = sendCmd.WithTarget(hosts.Source)
	recvCmd = recvCmd.WithTarget(hosts.Target)

	b := &builder{hosts: hosts, opts: opts, inv: inv, compressor: compressor}

	switch topo {
	case TopologyLocal:
		stages := []Stage{sendCmd}
		if wantPV {
			if pv, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				stages = append(stages, pv)
			}
		}
		if mb, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "mbuffer", opts.sourceMbufferArgs(), "buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			stages = append(stages, mb)
		}
		stages = append(stages, recvCmd)
		return &Plan{Topology: topo, Source: NewPipeline(hosts.Source, stages...)}

	case TopologyPush:
		srcStages := []Stage{sendCmd}
		ttyWanted := false
		if wantPV {
			if pv, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				srcStages = append(srcStages, pv)
				ttyWanted = !hosts.Source.IsLocal()
			}
		}
		compressOK := false
		var dc Stage
		if wantCompress {
			if cs, ds, ok := b.compressPair(ctx, hosts.Source, hosts.Target, toolinventory.ToolCompress, toolinventory.ToolCompress); ok {
				srcStages = append(srcStages, cs)
				compressOK = true
				dc = ds
			}
		}
		if mb, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "mbuffer", opts.sourceMbufferArgs(), "buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			srcStages = append(srcStages, mb)
		}
		source := NewPipeline(hosts.Source, srcStages...)
		source.AllocateTTY = ttyWanted

		var tgtStages []Stage
		if compressOK {
			tgtStages = append(tgtStages, dc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopTarget, hosts.Target, "mbuffer", opts.targetMbufferArgs(), "buffering and write limits", toolinventory.ToolMbuffer); ok {
			tgtStages = append(tgtStages, mb)
		}
		tgtStages = append(tgtStages, recvCmd)
		return &Plan{Topology: topo, Source: source, Target: NewPipeline(hosts.Target, tgtStages...)}

	case TopologyPull:
		srcStages := []Stage{sendCmd}
		compressOK := false
		var dc Stage
		if wantCompress {
			if cs, ds, ok := b.compressPair(ctx, hosts.Source, hosts.Target, toolinventory.ToolCompress, toolinventory.ToolCompress); ok {
				srcStages = append(srcStages, cs)
				compressOK = true
				dc = ds
			}
		}
		if mb, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "mbuffer", opts.sourceMbufferArgs(), "buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			srcStages = append(srcStages, mb)
		}
		source := NewPipeline(hosts.Source, srcStages...)

		var tgtStages []Stage
		if compressOK {
			tgtStages = append(tgtStages, dc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopTarget, hosts.Target, "mbuffer", opts.targetMbufferArgs(), "buffering and write limits", toolinventory.ToolMbuffer); ok {
			tgtStages = append(tgtStages, mb)
		}
		ttyWanted := false
		if wantPV {
			if pv, ok := b.tool(ctx, toolinventory.HopTarget, hosts.Target, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				tgtStages = append(tgtStages, pv)
				ttyWanted = !hosts.Target.IsLocal()
			}
		}
		tgtStages = append(tgtStages, recvCmd)
		target := NewPipeline(hosts.Target, tgtStages...)
		if target != nil {
			target.AllocateTTY = ttyWanted
		}
		return &Plan{Topology: topo, Source: source, Target: target}

	case TopologyRemoteDirect:
		srcStages := []Stage{sendCmd}
		srcTTY := false
		if wantPV {
			if pv, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				srcStages = append(srcStages, pv)
				srcTTY = true
			}
		}
		compressOK := wantCompress
		var sc, dc Stage
		var ok bool
		if wantCompress {
			sc, dc, ok = b.compressPair(ctx, hosts.Source, hosts.Target, toolinventory.ToolCompress, toolinventory.ToolCompress)
			compressOK = ok
		}
		if compressOK {
			srcStages = append(srcStages, sc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "mbuffer", opts.sourceMbufferArgs(), "buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			srcStages = append(srcStages, mb)
		}
		source := NewPipeline(hosts.Source, srcStages...)
		source.AllocateTTY = srcTTY

		var tgtStages []Stage
		if compressOK {
			tgtStages = append(tgtStages, dc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopTarget, hosts.Target, "mbuffer", opts.targetMbufferArgs(), "buffering and write limits", toolinventory.ToolMbuffer); ok {
			tgtStages = append(tgtStages, mb)
		}
		tgtTTY := false
		if wantPV && !srcTTY {
			if pv, ok := b.tool(ctx, toolinventory.HopTarget, hosts.Target, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				tgtStages = append(tgtStages, pv)
				tgtTTY = true
			}
		}
		tgtStages = append(tgtStages, recvCmd)
		target := NewPipeline(hosts.Target, tgtStages...)
		if target != nil {
			target.AllocateTTY = tgtTTY
		}
		return &Plan{Topology: topo, Source: source, Target: target}

	default: // TopologyRemoteIndirect
		srcStages := []Stage{sendCmd}
		srcTTY := false
		if wantPV {
			if pv, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				srcStages = append(srcStages, pv)
				srcTTY = true
			}
		}
		compressOK := wantCompress
		var sc, dc Stage
		var ok bool
		if wantCompress {
			sc, dc, ok = b.compressPair(ctx, hosts.Source, hosts.Target, toolinventory.ToolCompress, toolinventory.ToolCompress)
			compressOK = ok
		}
		if compressOK {
			srcStages = append(srcStages, sc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopSource, hosts.Source, "mbuffer", opts.sourceMbufferArgs(), "buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			srcStages = append(srcStages, mb)
		}
		source := NewPipeline(hosts.Source, srcStages...)
		source.AllocateTTY = srcTTY

		// The local hop's stages assemble independently of each other:
		// a leading mbuffer and the pv/compress middle stages and the
		// trailing mbuffer each appear whenever their own tool is
		// available, regardless of whether the others are.
		var localStages []Stage
		if mb, ok := b.tool(ctx, toolinventory.HopLocal, hosts.Local, "mbuffer", opts.sourceMbufferArgs(), "local buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			localStages = append(localStages, mb)
		}
		if compressOK {
			localStages = append(localStages, dc)
		}
		if !srcTTY && wantPV {
			if pv, ok := b.tool(ctx, toolinventory.HopLocal, hosts.Local, "pv", opts.pvArgs(), "progress bar", toolinventory.ToolPV); ok {
				localStages = append(localStages, pv)
			}
		}
		if compressOK {
			localStages = append(localStages, sc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopLocal, hosts.Local, "mbuffer", opts.targetMbufferArgs(), "local buffering and bandwidth limits", toolinventory.ToolMbuffer); ok {
			localStages = append(localStages, mb)
		}
		local := NewPipeline(hosts.Local, localStages...)

		var tgtStages []Stage
		if compressOK {
			tgtStages = append(tgtStages, dc)
		}
		if mb, ok := b.tool(ctx, toolinventory.HopTarget, hosts.Target, "mbuffer", opts.targetMbufferArgs(), "buffering and write limits", toolinventory.ToolMbuffer); ok {
			tgtStages = append(tgtStages, mb)
		}
		tgtStages = append(tgtStages, recvCmd)
		target := NewPipeline(hosts.Target, tgtStages...)
		return &Plan{Topology: topo, Source: source, Local: local, Target: target}
	}
}

type builder struct {
	hosts      Hosts
	opts       Options
	inv        *toolinventory.Inventory
	compressor CompressorSpec
}

// tool probes program's availability at hop on target (skipping the
// probe and forcing unavailable if the --skip-optional-commands list
// names it) and, if available, returns the Command to insert. ok is
// false if the stage should be degraded out, in which case a one-time
// warning has already been emitted (unless skipped).
func (b *builder) tool(ctx context.Context, hop toolinventory.Hop, target hostcmd.Target, program string, args []string, capability, skipWith string) (Stage, bool) {
	if b.inv.Skipped(skipWith) {
		return Stage{}, false
	}
	if !b.inv.Available(ctx, hop, target, program) {
		b.inv.Degrade(program, string(hop), capability, skipWith)
		return Stage{}, false
	}
	return hostcmd.New(program, args...).WithTarget(target), true
}

// compressPair returns the compress stage (bound to srcTarget) and the
// decompress stage (bound to dstTarget), requiring both binaries to be
// present; compression is always paired.
func (b *builder) compressPair(ctx context.Context, srcTarget, dstTarget hostcmd.Target, srcSkip, dstSkip string) (Stage, Stage, bool) {
	spec := b.compressor
	if spec.Name == "" {
		return Stage{}, Stage{}, false
	}
	compress, ok := b.tool(ctx, toolinventory.HopSource, srcTarget, spec.CompressBin, spec.CompressArgs, "compression", srcSkip)
	if !ok {
		return Stage{}, Stage{}, false
	}
	decompress, ok := b.tool(ctx, toolinventory.HopTarget, dstTarget, spec.DecompressBin, spec.DecompressArgs, "compression", dstSkip)
	if !ok {
		return Stage{}, Stage{}, false
	}
	return compress, decompress, true
}
