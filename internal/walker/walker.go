// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package walker is the recursive dataset walker: it enumerates a
// source dataset's filesystem/volume children, derives each child's
// target name and (when clone handling is enabled) recomputed origin,
// runs the busy-check and --skip-parent preflight, and orders clone
// children after the datasets their origin depends on.
package walker

import (
	"context"
	"regexp"
	"strings"

	"github.com/chithi/chithi/internal/busycheck"
	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/procrun"
)

// Node is one dataset discovered under the walked source, with its
// computed target name/origin and whether it is deferred to a second
// pass because its origin lives on another Node in this same batch.
type Node struct {
	SourceName   string
	TargetName   string
	SourceOrigin string // raw origin property, "" if not a clone
	TargetOrigin string // recomputed target-side origin, "" if not a clone
	IsParent     bool   // the walked root itself
	Deferred     bool
}

// Options configures one walk.
type Options struct {
	Source, Target  string
	Exclude         []*regexp.Regexp
	SkipParent      bool
	CloneHandling   bool
	Elevate         bool
}

// Walk enumerates sourceTarget's children rooted at opts.Source,
// translates each surviving name to its target-side counterpart, and
// returns them in listing order, with Deferred set on nodes whose origin
// depends on a sibling in the same batch; Ordered splits them into the
// immediately-sendable first pass and the deferred second pass. Busy
// targets are reported via the returned busy set, keyed by TargetName,
// from a single `ps` call on targetHostTarget.
func Walk(ctx context.Context, sourceTarget, targetHostTarget hostcmd.Target, opts Options) ([]Node, map[string]bool, error) {
	out, err := listChildren(ctx, sourceTarget, opts.Source, opts.Elevate)
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]Node, 0, len(out))
	for i, row := range out {
		if row.name != opts.Source && matchesAny(opts.Exclude, row.name) {
			continue
		}
		suffix := strings.TrimPrefix(row.name, opts.Source)
		targetName := opts.Target + suffix

		node := Node{
			SourceName:   row.name,
			TargetName:   targetName,
			SourceOrigin: row.origin,
			IsParent:     i == 0,
		}
		if opts.CloneHandling && row.origin != "" {
			node.TargetOrigin = translateOrigin(row.origin, opts.Source, opts.Target)
		}
		nodes = append(nodes, node)
	}

	if opts.SkipParent {
		nodes = deferParentSkip(nodes)
	}

	targetNames := make([]string, 0, len(nodes))
	for _, n := range nodes {
		targetNames = append(targetNames, n.TargetName)
	}
	busy, err := scanBusy(ctx, targetHostTarget, targetNames, opts.Elevate)
	if err != nil {
		return nil, nil, err
	}

	nodes = deferCloneSiblings(nodes)
	return nodes, busy, nil
}

type childRow struct {
	name   string
	origin string
}

// listChildren runs `zfs list -o name,origin -t filesystem,volume -Hr
// <source>`. The first row is the parent itself.
func listChildren(ctx context.Context, target hostcmd.Target, source string, elevate bool) ([]childRow, error) {
	cmd := hostcmd.New("zfs", "list", "-o", "name,origin", "-t", "filesystem,volume", "-Hr", source).
		WithTarget(target).WithElevate(elevate)
	h, err := procrun.Start(ctx, procrun.Spec{
		Argv:   cmd.Argv(),
		Stdout: procrun.StdioCapture,
		Stderr: procrun.StdioCapture,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.WalkerListFailed)
	}
	if err := h.Wait(); err != nil {
		return nil, errs.Wrap(err, errs.WalkerListFailed)
	}

	var rows []childRow
	for _, line := range strings.Split(strings.TrimRight(h.Stdout(), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			continue
		}
		origin := fields[1]
		if origin == "-" {
			origin = ""
		}
		rows = append(rows, childRow{name: fields[0], origin: origin})
	}
	return rows, nil
}

func matchesAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// translateOrigin rewrites a source-side origin "pool/fs@snap" into its
// target-side counterpart by the same prefix substitution applied to
// child names.
func translateOrigin(origin, sourcePrefix, targetPrefix string) string {
	datasetPart := origin
	snapPart := ""
	if idx := strings.IndexByte(origin, '@'); idx >= 0 {
		datasetPart, snapPart = origin[:idx], origin[idx:]
	}
	if !strings.HasPrefix(datasetPart, sourcePrefix) {
		return origin
	}
	return targetPrefix + strings.TrimPrefix(datasetPart, sourcePrefix) + snapPart
}

// deferParentSkip drops the parent node from the sendable set when
// --skip-parent is set; its target must already exist, which the
// caller verifies separately.
func deferParentSkip(nodes []Node) []Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.IsParent {
			continue
		}
		out = append(out, n)
	}
	return out
}

// deferCloneSiblings marks Deferred on any node whose TargetOrigin
// names another node's TargetName in this same batch, so the walker's
// caller can run a first pass over non-deferred nodes, then a second
// pass over the rest once their base clones exist on the target.
func deferCloneSiblings(nodes []Node) []Node {
	targetNames := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		targetNames[n.TargetName] = true
	}
	for i := range nodes {
		if nodes[i].TargetOrigin == "" {
			continue
		}
		originDataset := nodes[i].TargetOrigin
		if idx := strings.IndexByte(originDataset, '@'); idx >= 0 {
			originDataset = originDataset[:idx]
		}
		if targetNames[originDataset] && originDataset != nodes[i].TargetName {
			nodes[i].Deferred = true
		}
	}
	return nodes
}

func scanBusy(ctx context.Context, targetHostTarget hostcmd.Target, targetNames []string, elevate bool) (map[string]bool, error) {
	if len(targetNames) == 0 {
		return map[string]bool{}, nil
	}
	cmd := hostcmd.New("ps", "-eo", "args").WithTarget(targetHostTarget).WithElevate(elevate)
	h, err := procrun.Start(ctx, procrun.Spec{
		Argv:   cmd.Argv(),
		Stdout: procrun.StdioCapture,
		Stderr: procrun.StdioCapture,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CommandExecution)
	}
	if err := h.Wait(); err != nil {
		return nil, errs.Wrap(err, errs.CommandExecution)
	}
	return busycheck.ScanBusyTargets(h.Stdout(), targetNames), nil
}

// Ordered returns nodes split into (first pass, second pass), the
// second pass holding every node deferred by deferCloneSiblings.
func Ordered(nodes []Node) (first, second []Node) {
	for _, n := range nodes {
		if n.Deferred {
			second = append(second, n)
		} else {
			first = append(first, n)
		}
	}
	return first, second
}

// ParentExists checks whether targetName already exists on
// targetHostTarget, used by the --skip-parent preflight.
func ParentExists(ctx context.Context, targetHostTarget hostcmd.Target, targetName string, elevate bool) (bool, error) {
	cmd := hostcmd.New("zfs", "list", "-H", "-o", "name", targetName).WithTarget(targetHostTarget).WithElevate(elevate)
	h, err := procrun.Start(ctx, procrun.Spec{
		Argv:   cmd.Argv(),
		Stdout: procrun.StdioCapture,
		Stderr: procrun.StdioCapture,
	})
	if err != nil {
		return false, errs.Wrap(err, errs.CommandExecution)
	}
	return h.Wait() == nil, nil
}
