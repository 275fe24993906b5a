// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hostcmd

import (
	"context"
	"os/exec"
)

// Exists reports whether program is available on target: a POSIX
// `sh -c 'command -v X'` locally (since `command` is a shell builtin,
// not a standalone executable, on most systems), or `ssh host command -v
// X` remotely, where ssh's own remote shell resolves the builtin.
// Returns true iff the check process exits 0.
func Exists(ctx context.Context, target Target, program string) bool {
	var argv []string
	if target.IsLocal() {
		argv = []string{"sh", "-c", "command -v " + EscapeArg(program)}
	} else {
		argv = New("command", "-v", program).WithTarget(target).Argv()
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	return cmd.Run() == nil
}
