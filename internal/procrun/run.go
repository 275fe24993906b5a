// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package procrun is the process runner: spawning a child with
// configurable stdio wiring, a tee-capture variant that mirrors
// stdout/stderr to the parent's own streams while also collecting them
// into buffers, and a guard that prevents orphaned zfs send/receive
// children from outliving their caller.
package procrun

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/stratastor/logger"

	"github.com/chithi/chithi/internal/errs"
)

// StdioMode selects how a spawned process's stdio is wired.
type StdioMode int

const (
	// StdioClosed leaves the fd closed (default for stdin: no input expected).
	StdioClosed StdioMode = iota
	// StdioInherit connects the child directly to the parent's fd.
	StdioInherit
	// StdioCapture tees the stream to the parent's own stream while also
	// collecting it into a buffer (tee-capture). Valid for
	// stdout/stderr only.
	StdioCapture
)

// safeBuffer is a bytes.Buffer safe for concurrent Write (from the tee
// goroutine) and String (from a caller reading mid-flight).
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Spec describes one child process to spawn.
type Spec struct {
	Argv        []string
	Dir         string
	Stdin       StdioMode
	Stdout      StdioMode
	Stderr      StdioMode
	AllocateTTY bool // stdin/stdout/stderr all inherited, for interactive sudo prompts
	Log         logger.Logger

	// StdinReader and StdoutWriter, when set, wire this process's stdin
	// or stdout directly to the given end of an os.Pipe connecting it to
	// an adjacent pipeline stage, bypassing the Stdin/Stdout StdioMode.
	// Used by the pipeline composer to chain hops without a shell pipe.
	StdinReader io.Reader
	StdoutWriter io.Writer
}

// Handle is a spawned, possibly still-running child, plus whatever its
// StdioCapture streams collected.
type Handle struct {
	cmd       *exec.Cmd
	stdoutBuf safeBuffer
	stderrBuf safeBuffer
	tee       sync.WaitGroup

	// closeAfterStart holds the parent's copies of StdioCapture pipe
	// write ends; Start closes them once the child holds its own, so the
	// tee goroutines see EOF when the child exits.
	closeAfterStart []*os.File

	reapedMu sync.Mutex
	reaped   bool
}

// Start spawns spec's process under ctx: cancelling ctx sends SIGKILL to
// the child (Go's exec.CommandContext default).
func Start(ctx context.Context, spec Spec) (*Handle, error) {
	if len(spec.Argv) == 0 {
		return nil, errs.New(errs.CommandInvalidInput, "empty argv")
	}
	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir

	h := &Handle{cmd: cmd}

	if spec.Log != nil {
		spec.Log.Debug("starting command", "argv", strings.Join(spec.Argv, " "))
	}

	if spec.AllocateTTY {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	} else {
		switch {
		case spec.StdinReader != nil:
			cmd.Stdin = spec.StdinReader
		case spec.Stdin == StdioInherit:
			cmd.Stdin = os.Stdin
		}
		if spec.StdoutWriter != nil {
			cmd.Stdout = spec.StdoutWriter
		} else if err := h.wireOut(spec.Stdout, os.Stdout, &cmd.Stdout, &h.stdoutBuf); err != nil {
			return nil, err
		}
		if err := h.wireOut(spec.Stderr, os.Stderr, &cmd.Stderr, &h.stderrBuf); err != nil {
			return nil, err
		}
	}

	startErr := cmd.Start()
	for _, f := range h.closeAfterStart {
		f.Close()
	}
	if err := startErr; err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, errs.New(errs.CommandNotFound, spec.Argv[0])
		}
		return nil, errs.NewCommandError(strings.Join(spec.Argv, " "), -1, err.Error())
	}
	return h, nil
}

// wireOut wires one of stdout/stderr per mode. StdioCapture spawns a tee
// goroutine copying the child's pipe into both the parent's own stream
// (std) and buf, tracked by h.tee so Wait can block until draining finishes.
func (h *Handle) wireOut(mode StdioMode, std *os.File, dst *io.Writer, buf *safeBuffer) error {
	switch mode {
	case StdioInherit:
		*dst = std
		return nil
	case StdioCapture:
		r, w, err := os.Pipe()
		if err != nil {
			return errs.Wrap(err, errs.CommandExecution)
		}
		*dst = w
		h.closeAfterStart = append(h.closeAfterStart, w)
		h.tee.Add(1)
		go func() {
			defer h.tee.Done()
			defer r.Close()
			buf2 := make([]byte, 32*1024)
			for {
				n, rerr := r.Read(buf2)
				if n > 0 {
					_, _ = std.Write(buf2[:n])
					buf.Write(buf2[:n])
				}
				if rerr != nil {
					return
				}
			}
		}()
		return nil
	default:
		return nil
	}
}

// Wait blocks for the child to exit and for its tee goroutines (if any)
// to finish draining, returning a *errs.ChithiError (CommandExecution)
// on non-zero exit, carrying captured stderr.
func (h *Handle) Wait() error {
	err := h.cmd.Wait()
	h.tee.Wait()
	h.reapedMu.Lock()
	h.reaped = true
	h.reapedMu.Unlock()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return errs.NewCommandError(h.cmd.Path, exitErr.ExitCode(), h.Stderr())
	}
	return errs.Wrap(err, errs.CommandExecution)
}

// Stdout returns the bytes collected by a StdioCapture stdout stream so far.
func (h *Handle) Stdout() string { return h.stdoutBuf.String() }

// Stderr returns the bytes collected by a StdioCapture stderr stream so far.
func (h *Handle) Stderr() string { return h.stderrBuf.String() }

// Guard wraps a Handle so that if it is not reaped by the time Release
// runs (scope exit, including a panic or an early error return), the
// child is sent SIGTERM and waited on. Prevents orphaned `zfs send`
// streams left running after their caller gives up.
type Guard struct {
	h       *Handle
	timeout time.Duration
}

// NewGuard wraps h. timeout bounds how long Release waits after SIGTERM
// before falling back to SIGKILL.
func NewGuard(h *Handle, timeout time.Duration) *Guard {
	return &Guard{h: h, timeout: timeout}
}

// Release is meant to be deferred immediately after Start. It is a
// no-op if Wait has already reaped the child.
func (g *Guard) Release() {
	g.h.reapedMu.Lock()
	reaped := g.h.reaped
	g.h.reapedMu.Unlock()
	if reaped || g.h.cmd.Process == nil {
		return
	}
	_ = g.h.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = g.h.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(g.timeout):
		_ = g.h.cmd.Process.Kill()
	}
}
