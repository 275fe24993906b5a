// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package procrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chithi/chithi/internal/errs"
)

func TestStartEmptyArgv(t *testing.T) {
	_, err := Start(context.Background(), Spec{})
	require.Error(t, err)
	code, ok := errs.Code(err)
	require.True(t, ok)
	assert.Equal(t, errs.CommandInvalidInput, code)
}

func TestStartAndWaitCapturesStdout(t *testing.T) {
	h, err := Start(context.Background(), Spec{
		Argv:   []string{"echo", "-n", "hello"},
		Stdout: StdioCapture,
		Stderr: StdioCapture,
	})
	require.NoError(t, err)

	require.NoError(t, h.Wait())
	assert.Equal(t, "hello", h.Stdout())
	assert.Empty(t, h.Stderr())
}

func TestWaitReturnsCommandErrorOnNonZeroExit(t *testing.T) {
	h, err := Start(context.Background(), Spec{
		Argv:   []string{"sh", "-c", "echo failure message 1>&2; exit 3"},
		Stdout: StdioCapture,
		Stderr: StdioCapture,
	})
	require.NoError(t, err)

	waitErr := h.Wait()
	require.Error(t, waitErr)

	code, ok := errs.Code(waitErr)
	require.True(t, ok)
	assert.Equal(t, errs.CommandExecution, code)
	assert.Contains(t, waitErr.Error(), "failure message")
}

func TestStartUnknownProgramIsCommandNotFound(t *testing.T) {
	_, err := Start(context.Background(), Spec{
		Argv: []string{"chithi-definitely-not-a-real-binary"},
	})
	require.Error(t, err)

	code, ok := errs.Code(err)
	require.True(t, ok)
	assert.Equal(t, errs.CommandNotFound, code)
}

func TestContextCancelKillsChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h, err := Start(ctx, Spec{Argv: []string{"sleep", "30"}})
	require.NoError(t, err)

	cancel()
	err = h.Wait()
	assert.Error(t, err)
}

func TestGuardReleaseIsNoopAfterWait(t *testing.T) {
	h, err := Start(context.Background(), Spec{Argv: []string{"true"}})
	require.NoError(t, err)
	require.NoError(t, h.Wait())

	g := NewGuard(h, time.Second)
	assert.NotPanics(t, func() { g.Release() })
}

func TestGuardReleaseTerminatesUnreapedChild(t *testing.T) {
	h, err := Start(context.Background(), Spec{Argv: []string{"sleep", "30"}})
	require.NoError(t, err)

	g := NewGuard(h, 2*time.Second)
	g.Release()
}
