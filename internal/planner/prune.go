// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"

	"github.com/chithi/chithi/internal/dataset"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/naming"
)

// pruneBatchSize bounds how many snapshots one `zfs destroy` invocation
// names, in batches of at most 10.
const pruneBatchSize = 10

// PruneSyncSnapshots destroys every entry in entries whose name matches
// this tool's own sync-snapshot naming convention, excluding keepName
// (the snapshot just created this run), in batches of at most
// pruneBatchSize per zfs destroy invocation.
func (z *zfsOps) PruneSyncSnapshots(ctx context.Context, target hostcmd.Target, fs string, entries []dataset.Entry, pruneFormat, identifier, hostname, keepName string) error {
	var toPrune []string
	for _, e := range entries {
		if e.Kind != dataset.KindSnapshot {
			continue
		}
		if e.Name == keepName {
			continue
		}
		if naming.PruneMatches(e.Name, pruneFormat, identifier, hostname) {
			toPrune = append(toPrune, e.Name)
		}
	}

	for start := 0; start < len(toPrune); start += pruneBatchSize {
		end := start + pruneBatchSize
		if end > len(toPrune) {
			end = len(toPrune)
		}
		if err := z.DestroySnapshots(ctx, target, fs, toPrune[start:end]); err != nil {
			return err
		}
	}
	return nil
}
