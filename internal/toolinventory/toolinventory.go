// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package toolinventory is the optional-tool inventory: probes per-hop
// availability of pv, a compressor pair, and mbuffer, and decides which
// of them a pipeline may actually use given the chosen topology,
// degrading missing tools out with a one-time warning instead of
// failing the run.
package toolinventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stratastor/logger"

	"github.com/chithi/chithi/internal/hostcmd"
)

// Hop identifies one of the up to three places a pipeline stage can run.
type Hop string

const (
	HopSource Hop = "source"
	HopLocal  Hop = "local"
	HopTarget Hop = "target"
)

// Tool names as accepted by --skip-optional-commands.
const (
	ToolPV         = "pv"
	ToolMbuffer    = "mbuffer"
	ToolCompress   = "compress"
)

// Inventory probes and remembers tool availability for one run.
type Inventory struct {
	mu       sync.Mutex
	checked  map[string]bool // "tool@hop" -> available
	skip     map[string]bool // tool names from --skip-optional-commands
	noChecks bool            // --no-command-checks: assume everything is present
	warned   map[string]bool
	log      logger.Logger
}

// New builds an Inventory. skipTokens is the parsed
// --skip-optional-commands list (suppresses both the probe and the
// warning for the named tool, always treating it as unavailable).
func New(skipTokens []string, noCommandChecks bool, log logger.Logger) *Inventory {
	skip := make(map[string]bool, len(skipTokens))
	for _, t := range skipTokens {
		skip[strings.TrimSpace(t)] = true
	}
	return &Inventory{
		checked:  make(map[string]bool),
		skip:     skip,
		noChecks: noCommandChecks,
		warned:   make(map[string]bool),
		log:      log,
	}
}

// Skipped reports whether tool was named in --skip-optional-commands.
func (inv *Inventory) Skipped(tool string) bool {
	return inv.skip[tool]
}

// Available reports whether program is usable at hop on target, caching
// the result per (program, hop) for the life of the Inventory.
// --no-command-checks short-circuits to true without probing.
func (inv *Inventory) Available(ctx context.Context, hop Hop, target hostcmd.Target, program string) bool {
	key := fmt.Sprintf("%s@%s", program, hop)

	inv.mu.Lock()
	if v, ok := inv.checked[key]; ok {
		inv.mu.Unlock()
		return v
	}
	inv.mu.Unlock()

	var ok bool
	if inv.noChecks {
		ok = true
	} else {
		ok = hostcmd.Exists(ctx, target, program)
	}

	inv.mu.Lock()
	inv.checked[key] = ok
	inv.mu.Unlock()
	return ok
}

// Degrade emits a one-time warning that a capability is disabled because
// binary is missing at hopDesc, naming the --skip-optional-commands
// token that would have silenced it.
func (inv *Inventory) Degrade(binary, hopDesc, capability, skipWith string) {
	key := binary + "@" + hopDesc
	inv.mu.Lock()
	if inv.warned[key] {
		inv.mu.Unlock()
		return
	}
	inv.warned[key] = true
	inv.mu.Unlock()

	if inv.log != nil {
		inv.log.Warn(fmt.Sprintf(
			"%s not available on %s - sync will continue without %s - to disable this warning use --skip-optional-commands '%s'",
			binary, hopDesc, capability, skipWith))
	}
}
