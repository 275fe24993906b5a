// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"strconv"
	"strings"

	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/procrun"
	"github.com/chithi/chithi/internal/units"
)

// EstimateSize runs `zfs send -nvP <sendArgv...>` on target and parses
// the trailing numeric field of the output's last line as the stream's
// byte size, floored at units.MinStreamSize so a progress meter is
// never handed a zero. A failed or unparseable dry-run is not fatal: it
// returns MinStreamSize, since size calculation is an optional courtesy
// to the progress meter, not a precondition for the transfer.
func EstimateSize(ctx context.Context, elevate bool, target hostcmd.Target, sendArgs []string) int64 {
	argv := append([]string{"send", "-n", "-v", "-P"}, sendArgs...)
	cmd := hostcmd.New("zfs", argv...).WithTarget(target).WithElevate(elevate)

	h, err := procrun.Start(ctx, procrun.Spec{
		Argv:   cmd.Argv(),
		Stdout: procrun.StdioCapture,
		Stderr: procrun.StdioCapture,
	})
	if err != nil {
		return units.MinStreamSize
	}
	if err := h.Wait(); err != nil {
		return units.MinStreamSize
	}

	lines := strings.Split(strings.TrimRight(h.Stdout(), "\n"), "\n")
	if len(lines) == 0 {
		return units.MinStreamSize
	}
	last := lines[len(lines)-1]
	fields := strings.Fields(last)
	if len(fields) == 0 {
		return units.MinStreamSize
	}
	n, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return units.MinStreamSize
	}
	return units.ClampStreamSize(n)
}
