// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hostcmd

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/naming"
)

// Multiplexer owns the SSH master control sockets shared across every
// subprocess invocation in a run. At most one socket exists per
// distinct host for the lifetime of the process; ownership of
// creation/teardown belongs to whichever RemoteHost first requested it.
type Multiplexer struct {
	mu      sync.Mutex
	sockets map[string]string // host -> control socket path
}

// NewMultiplexer returns an empty Multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{sockets: make(map[string]string)}
}

// Ensure establishes (or reuses) the master control socket for h.Host,
// setting h.ControlSocketPath. Two RemoteHost values for the same Host
// end up pointing at the same socket file.
func (m *Multiplexer) Ensure(ctx context.Context, h *RemoteHost) error {
	m.mu.Lock()
	if existing, ok := m.sockets[h.Host]; ok {
		m.mu.Unlock()
		h.ControlSocketPath = existing
		return nil
	}
	m.mu.Unlock()

	socket := naming.ControlSocketPath(h.Host, time.Now(), os.Getpid())

	masterArgs := []string{"ssh", "-M", "-S", socket, "-o", "ControlPersist=1m"}
	if h.ConfigFile != "" {
		masterArgs = append(masterArgs, "-F", h.ConfigFile)
	}
	if h.IdentityFile != "" {
		masterArgs = append(masterArgs, "-i", h.IdentityFile)
	}
	if h.Cipher != "" {
		masterArgs = append(masterArgs, "-c", h.Cipher)
	}
	if h.Port != 0 {
		masterArgs = append(masterArgs, "-p", strconv.Itoa(h.Port))
	}
	for _, opt := range h.ExtraOptions {
		masterArgs = append(masterArgs, "-o", opt)
	}
	masterArgs = append(masterArgs, h.Host, "exit")

	cmd := exec.CommandContext(ctx, masterArgs[0], masterArgs[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errs.New(errs.TransportSSHMasterFailed, h.Host).
			WithMetadata("stderr", string(out))
	}

	echoCmd := exec.CommandContext(ctx, "ssh", "-S", socket, h.Host, "echo", "-n")
	if out, err := echoCmd.CombinedOutput(); err != nil {
		return errs.New(errs.TransportSSHUnreachable, h.Host).
			WithMetadata("stderr", string(out))
	}

	m.mu.Lock()
	m.sockets[h.Host] = socket
	m.mu.Unlock()
	h.ControlSocketPath = socket
	return nil
}

// Close tears down every master this Multiplexer created. Best-effort:
// each `ssh -S socket host -O exit` is attempted even if earlier ones
// failed, and errors are swallowed (teardown on an abrupt exit is
// bounded anyway by ControlPersist=1m).
func (m *Multiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for host, socket := range m.sockets {
		cmd := exec.Command("ssh", "-S", socket, host, "-O", "exit")
		_ = cmd.Run()
		delete(m.sockets, host)
	}
}
